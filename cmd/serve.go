package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/ziadkadry99/pdfchat/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing tools to
list a user's documents, search their active document and ask questions
against it. It shares the database with the HTTP server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		logger.Info("pdfchat MCP server started on stdio",
			zap.String("database", a.db.Path()),
			zap.String("embedder", a.embedder.Name()))

		srv := mcpserver.NewServer(a.documents, a.engine)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
