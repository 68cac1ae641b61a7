package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/f-sync/uiflow/internal/assertions"
	"github.com/f-sync/uiflow/internal/browserdrv"
	"github.com/f-sync/uiflow/internal/catalog"
	"github.com/f-sync/uiflow/internal/config"
	"github.com/f-sync/uiflow/internal/elements"
	"github.com/f-sync/uiflow/internal/frames"
	"github.com/f-sync/uiflow/internal/interpreter"
	"github.com/f-sync/uiflow/internal/orchestrator"
	"github.com/f-sync/uiflow/internal/results"
	"github.com/f-sync/uiflow/internal/server"
	"github.com/f-sync/uiflow/internal/telemetry"
	"github.com/f-sync/uiflow/internal/variables"
)

const (
	commandUse               = "server"
	commandShortDescription  = "Serve the declarative UI test runner over HTTP"
	errMessageLoggerCreate   = "create logger"
	errMessageCatalogCreate  = "create catalog client"
	errMessageResultsCreate  = "create result store"
	errMessageListenAndServe = "listen and serve"
	logMessageStartingServer = "starting HTTP server"
	logMessageServerStopped  = "server stopped"
	logMessageListenError    = "server listen failure"
	logFieldAddress          = "address"
)

func main() {
	cobra.CheckErr(newServerCommand().Execute())
}

func newServerCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   commandUse,
		Short: commandShortDescription,
		RunE:  runServerCommand,
	}

	config.BindFlags(command)
	cobra.OnInitialize(config.ConfigureEnvironment)

	return command
}

func runServerCommand(*cobra.Command, []string) error {
	cfg := config.Load()

	logger, err := telemetry.NewLogger(cfg.DevelopmentLogging)
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageLoggerCreate, err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.EnableTracing {
		tracerProvider, err := telemetry.NewStdoutTracerProvider(context.Background())
		if err != nil {
			return fmt.Errorf("create tracer provider: %w", err)
		}
		defer func() {
			_ = tracerProvider.Shutdown(context.Background())
		}()
	} else {
		telemetry.NewNoopTracerProvider()
	}

	catalogClient, err := buildCatalogClient(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageCatalogCreate, err)
	}
	if closer, ok := catalogClient.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}

	resultStore, err := results.NewSQLiteStore(cfg.ResultsDSN)
	if err != nil {
		return fmt.Errorf("%s: %w", errMessageResultsCreate, err)
	}
	defer func() { _ = resultStore.Close() }()

	interp := interpreter.New(frames.NewLocator(), elements.NewResolver(), variables.NewResolver(), assertions.NewEvaluator())
	metrics := telemetry.NewMetrics()

	orch := orchestrator.New(orchestrator.Config{
		Browser:     &browserdrv.ChromedpBrowser{},
		Catalog:     catalogClient,
		Store:       resultStore,
		Interpreter: interp,
		Logger:      logger,
		Metrics:     metrics,
	})

	router, err := server.NewRouter(server.RouterConfig{Orchestrator: orch, Logger: logger})
	if err != nil {
		return err
	}

	address := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	logger.Info(logMessageStartingServer, zap.String(logFieldAddress, address))

	httpServer := &http.Server{Addr: address, Handler: router}
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(logMessageListenError, zap.Error(err))
		return fmt.Errorf("%s: %w", errMessageListenAndServe, err)
	}

	logger.Info(logMessageServerStopped)
	return nil
}

func buildCatalogClient(cfg config.Config) (catalog.Client, error) {
	if strings.TrimSpace(cfg.CatalogBaseURL) != "" {
		return catalog.NewHTTPClient(catalog.HTTPClientConfig{BaseURL: cfg.CatalogBaseURL})
	}
	return catalog.NewSQLiteCatalog(cfg.CatalogDSN)
}
