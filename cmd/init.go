package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pdfchat/internal/config"
	"github.com/ziadkadry99/pdfchat/internal/credentials"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize pdfchat configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the pdfchat server and writes a .pdfchat.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.RunWizard(cfgFile, credentials.GenerateKey); err != nil {
			return err
		}
		fmt.Println("Start the server with `pdfchat server`.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
