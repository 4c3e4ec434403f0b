package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/cli/config"
	httpctrl "github.com/nutrisha-ai/nutrisha/pkg/controller/http"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/service/configstore"
	"github.com/nutrisha-ai/nutrisha/pkg/service/embedding"
	"github.com/nutrisha-ai/nutrisha/pkg/service/extractor"
	"github.com/nutrisha-ai/nutrisha/pkg/service/worker"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	shutdownTimeout      = 10 * time.Second
	dispatcherWaitBudget = 30 * time.Second
)

func cmdServe(version string) *cli.Command {
	var addr string
	var maxBodySize int64
	var appCfg config.App
	var repoCfg config.Repository
	var geminiCfg config.Gemini
	var vectorCfg config.VectorStore
	var storageCfg config.Storage
	var realtimeCfg config.Realtime
	var notifyCfg config.Notification
	var authCfg config.Auth
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("NUTRISHA_ADDR"),
			Destination: &addr,
		},
		&cli.Int64Flag{
			Name:        "max-body-size",
			Usage:       "Maximum accepted request body in bytes",
			Value:       httpctrl.DefaultMaxBodySize,
			Sources:     cli.EnvVars("NUTRISHA_MAX_BODY_SIZE"),
			Destination: &maxBodySize,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, vectorCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, realtimeCfg.Flags()...)
	flags = append(flags, notifyCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer flush()

			app, err := appCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load application configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			store := configstore.New(repo.AppConfig())
			seeded, err := store.Seed(ctx, app.PromptDefaults())
			if err != nil {
				return goerr.Wrap(err, "failed to seed prompt templates")
			}
			if len(seeded) > 0 {
				logging.Default().Info("Seeded prompt templates", "keys", seeded)
			}

			authUC, err := authCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}
			if authUC.IsNoAuthn() {
				logging.Default().Warn("Authentication is disabled (no-auth mode)", "auth", authCfg)
			}

			opts := append(app.UseCaseOptions(), usecase.WithAuth(authUC))

			if geminiCfg.IsEnabled() {
				logging.Default().LogAttrs(ctx, slog.LevelInfo, "Gemini configured", geminiCfg.LogAttrs()...)

				gen, err := geminiCfg.ConfigureGenerator(ctx, store)
				if err != nil {
					return err
				}
				llm, err := geminiCfg.ConfigureLLM(ctx)
				if err != nil {
					return err
				}
				opts = append(opts,
					usecase.WithReplyGenerator(gen),
					usecase.WithEmbedder(embedding.New(llm)),
					usecase.WithMemoryExtractor(extractor.New(llm)),
				)
			} else {
				logging.Default().Info("Gemini project not configured, AI replies and memories are disabled")
			}

			vectorStore, err := vectorCfg.Configure(ctx, repo)
			if err != nil {
				return goerr.Wrap(err, "failed to configure vector store")
			}
			if vectorStore != nil {
				provisionVectorStore(ctx, vectorStore)
				opts = append(opts, usecase.WithVectorStore(vectorStore))
			}

			resolver, closeStorage, err := storageCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure attachment storage")
			}
			defer closeStorage()
			if resolver != nil {
				opts = append(opts, usecase.WithAttachmentResolver(resolver))
			}

			publisher, closeRealtime, err := realtimeCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure realtime events")
			}
			defer closeRealtime()
			opts = append(opts, usecase.WithRealtime(publisher))

			notifier, err := notifyCfg.Configure(ctx, repo.DeviceToken())
			if err != nil {
				return goerr.Wrap(err, "failed to configure notifications")
			}
			opts = append(opts, usecase.WithNotifier(notifier))

			uc := usecase.New(repo, opts...)

			refresher := worker.NewConfigRefreshWorker(store, []string{
				model.ConfigKeySystemPrompt,
				model.ConfigKeyResponseJSONStructure,
			}, app.RefreshInterval())
			if err := refresher.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start config refresh worker")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, httpctrl.WithMaxBodySize(maxBodySize)),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				refresher.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
			}

			refresher.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			// Replies, memories and pushes still in flight finish before the clients close
			waitDispatcher(uc, dispatcherWaitBudget)

			logging.Default().Info("Server shutdown completed")
			return nil
		},
	}
}

// provisionVectorStore creates the memory collection when missing. Failures are logged
// and the server keeps starting; stores then fail per record until the backend recovers.
func provisionVectorStore(ctx context.Context, store interfaces.MemoryVectorStore) bool {
	if err := store.EnsureCollection(ctx); err != nil {
		logging.From(ctx).Warn("failed to provision vector store, memories will not be saved",
			"error", err.Error())
		return false
	}
	return true
}

func waitDispatcher(uc *usecase.UseCases, budget time.Duration) {
	done := make(chan struct{})
	go func() {
		uc.Dispatcher().Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(budget):
		logging.Default().Warn("Background jobs did not finish before shutdown", "budget", budget.String())
	}
}
