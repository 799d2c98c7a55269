package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pdfchat/internal/importer"
	"github.com/ziadkadry99/pdfchat/internal/progress"
)

var (
	importUser    string
	importExclude []string
	importWatch   string
)

var importCmd = &cobra.Command{
	Use:   "import [glob...]",
	Short: "Import PDF files into a user's library",
	Long: `Imports every PDF matching the glob patterns (for example "docs/**/*.pdf")
into the library of --user. The last file imported becomes the active
document. With --watch DIR the command keeps running and imports PDFs as
they appear in DIR.`,
	Example: `  pdfchat import --user alice "papers/**/*.pdf"
  pdfchat import --user alice --watch ./inbox`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if importUser == "" {
			return fmt.Errorf("--user is required")
		}
		if len(args) == 0 && importWatch == "" {
			return fmt.Errorf("give at least one glob pattern or --watch DIR")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if len(args) > 0 {
			files, err := importer.Find(args, importExclude, cfg.Upload.MaxBytes)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(os.Stderr, "No PDF files matched.")
			} else {
				im := importer.New(a.library, progress.NewReporter(), logger.Named("import"))
				summary, err := im.Import(ctx, importUser, files)
				if summary != nil {
					fmt.Fprintf(os.Stderr, "Imported %d of %d files\n", len(summary.Imported), len(files))
					for _, f := range summary.Failed {
						fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", f.Path, f.Err)
					}
				}
				if err != nil {
					return err
				}
			}
		}

		if importWatch != "" {
			im := importer.New(a.library, nil, logger.Named("watch"))
			fmt.Fprintf(os.Stderr, "Watching %s for new PDFs (Ctrl+C to stop)\n", importWatch)
			return im.Watch(ctx, importUser, importWatch, importer.DefaultSettle, func(path string, err error) {
				if err != nil {
					fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", path, err)
					return
				}
				fmt.Fprintf(os.Stderr, "  imported: %s\n", path)
			})
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importUser, "user", "", "user id that will own the imported documents")
	importCmd.Flags().StringSliceVar(&importExclude, "exclude", nil, "glob patterns to skip")
	importCmd.Flags().StringVar(&importWatch, "watch", "", "directory to watch for new PDFs")
	rootCmd.AddCommand(importCmd)
}
