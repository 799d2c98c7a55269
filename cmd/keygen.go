package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pdfchat/internal/credentials"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an encryption key for stored API keys",
	Long:  `Prints a new random key. Put it in encryption_key or PDFCHAT_ENCRYPTION_KEY; changing it later makes existing stored API keys unreadable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := credentials.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Println(key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
