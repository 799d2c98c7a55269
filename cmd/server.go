package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/pdfchat/internal/render"
	"github.com/ziadkadry99/pdfchat/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP and websocket chat server",
	Long:  `Starts the pdfchat server with the REST API for API keys, documents and chat history, plus the websocket chat endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = serverPort
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

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			RequestTimeout: cfg.Server.RequestTimeout,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			UserHeader:     cfg.Server.UserHeader,
			MaxUploadBytes: cfg.Upload.MaxBytes,
		}, server.Deps{
			Credentials: a.credentials,
			Library:     a.library,
			Engine:      a.engine,
			ChatLog:     a.chatLog,
			Registry:    a.registry,
			Renderer:    render.New(),
		}, logger.Named("http"))

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go a.registry.Run(ctx, cfg.Session.SweepInterval)

		go func() {
			<-ctx.Done()
			logger.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown", zap.Error(err))
			}
		}()

		logger.Info("pdfchat server starting",
			zap.String("version", Version),
			zap.Int("port", cfg.Server.Port),
			zap.String("database", a.db.Path()),
			zap.String("embedder", a.embedder.Name()),
			zap.String("default_provider", string(cfg.LLM.Provider)))

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	},
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 5000, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serverCmd)
}
