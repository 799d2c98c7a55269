package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pdfchat/internal/config"
)

var (
	keysUser     string
	keysLabel    string
	keysProvider string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage a user's LLM API keys",
}

var keysAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a new API key (prompted, never echoed)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if keysLabel == "" {
			return fmt.Errorf("--label is required")
		}
		return withApp(func(ctx context.Context, a *app) error {
			provider := config.ProviderType(keysProvider)
			if provider == "" {
				provider = a.cfg.LLM.Provider
			}
			if !config.ValidProvider(provider) {
				return fmt.Errorf("unsupported provider %q", provider)
			}

			prompt := promptui.Prompt{
				Label: fmt.Sprintf("%s API key", provider),
				Mask:  '*',
				Validate: func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("key must not be empty")
					}
					return nil
				},
			}
			secret, err := prompt.Run()
			if err != nil {
				return fmt.Errorf("reading key: %w", err)
			}

			c, err := a.credentials.Add(ctx, keysUser, keysLabel, provider, strings.TrimSpace(secret))
			if err != nil {
				return err
			}
			state := "inactive"
			if c.IsActive {
				state = "active"
			}
			fmt.Printf("Stored %s key %q (%s) as %s, id %s\n", c.Provider, c.Label, c.Masked, state, c.ID)
			return nil
		})
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored API keys with masked secrets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			creds, err := a.credentials.List(ctx, keysUser)
			if err != nil {
				return err
			}
			if len(creds) == 0 {
				fmt.Println("No API keys stored.")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLABEL\tPROVIDER\tKEY\tACTIVE")
			for _, c := range creds {
				active := ""
				if c.IsActive {
					active = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Label, c.Provider, c.Masked, active)
			}
			return tw.Flush()
		})
	},
}

var keysActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Make a stored key the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.credentials.Activate(ctx, keysUser, args[0]); err != nil {
				return err
			}
			fmt.Printf("Activated key %s\n", args[0])
			return nil
		})
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.credentials.Delete(ctx, keysUser, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted key %s\n", args[0])
			return nil
		})
	},
}

// withApp loads config, wires the services and runs fn.
func withApp(fn func(ctx context.Context, a *app) error) error {
	if keysUser == "" {
		return fmt.Errorf("--user is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.EncryptionKey == "" {
		return fmt.Errorf("encryption_key is not set; keys stored now could never be read back (run `pdfchat keygen`)")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(context.Background(), a)
}

func init() {
	keysCmd.PersistentFlags().StringVar(&keysUser, "user", "", "user id that owns the keys")
	keysAddCmd.Flags().StringVar(&keysLabel, "label", "", "display name for the key")
	keysAddCmd.Flags().StringVar(&keysProvider, "provider", "", "groq, openai, openrouter, anthropic or google (default llm.provider)")

	keysCmd.AddCommand(keysAddCmd, keysListCmd, keysActivateCmd, keysDeleteCmd)
	rootCmd.AddCommand(keysCmd)
}
