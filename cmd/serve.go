package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/ingredient-matcher/internal/secrets"
	"github.com/spigell/ingredient-matcher/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve single-item matching over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address. Default is :8000")
	serveCmd.Flags().String("token-file", "", "file with a bearer token required by /match and /reload")
	serveCmd.Flags().Duration("request-timeout", 0, "per request timeout. Default is 5s")
	serveCmd.Flags().BoolP("watch", "w", false, "reload canonical ingredients when the file changes")

	if err := viper.BindEnv("serve.token-file", "INGREDIENT_MATCHER_TOKEN_FILE"); err != nil {
		log.Fatalf("binding INGREDIENT_MATCHER_TOKEN_FILE environment variable: %v", err)
	}

	viper.BindPFlag("serve.address", serveCmd.Flags().Lookup("address"))
	viper.BindPFlag("serve.token-file", serveCmd.Flags().Lookup("token-file"))
	viper.BindPFlag("serve.request-timeout", serveCmd.Flags().Lookup("request-timeout"))
	viper.BindPFlag("serve.watch", serveCmd.Flags().Lookup("watch"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	logger.Info("starting the ingredient-matcher api", zap.String("version", version))

	token, err := secrets.Optional(secrets.Source{
		Name: "api token",
		File: config.Serve.TokenFile,
	})
	if err != nil {
		logger.Fatal("loading api token", zap.Error(err))
	}
	if token == "" {
		logger.Warn("api token is not configured, /match and /reload are open")
	}

	store := openStore(config, logger)
	svc := service.New(store, config.Threshold, logger)

	if config.Serve.Watch {
		go func() {
			if err := store.Watch(ctx); err != nil {
				logger.Error("watching canonical ingredients", zap.Error(err))
			}
		}()
	}

	server := &http.Server{
		Addr: config.Serve.Address,
		Handler: service.NewHandler(svc, service.HandlerConfig{
			Token:   token,
			Timeout: config.Serve.RequestTimeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("address", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serving http", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down", zap.String("reason", "signal received"))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
