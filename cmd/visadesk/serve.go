package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rpattn/visadesk/internal/api"
	"github.com/rpattn/visadesk/internal/cases"
	"github.com/rpattn/visadesk/internal/catalog"
	"github.com/rpattn/visadesk/internal/db"
	"github.com/rpattn/visadesk/internal/export"
	"github.com/rpattn/visadesk/internal/passport"
	"github.com/rpattn/visadesk/internal/repository"
)

const shutdownTimeout = 30 * time.Second

var skipMigrations bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false,
		"Do not apply pending migrations on startup")

	mustBind("addr", v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")))
}

// store bundles the pieces every database-backed command needs.
type store struct {
	conn  *db.Connection
	repos repository.Repositories
	tx    repository.TxManager
}

func openStore(ctx context.Context, config db.Config) (*store, error) {
	conn, err := db.NewConnection(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &store{
		conn:  conn,
		repos: repository.New(conn.Pool),
		tx:    repository.NewTxManager(conn),
	}, nil
}

func serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !skipMigrations {
		if err := db.RunMigrations(cfg.Database); err != nil {
			return err
		}
	}

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.conn.Close()

	logger := log.Logger
	caseService := cases.NewService(st.repos, st.tx, cases.WithLogger(logger.With().Str("component", "cases").Logger()))
	formService := passport.NewService(st.repos, st.tx, passport.WithLogger(logger.With().Str("component", "passport").Logger()))
	catalogService := catalog.NewService(st.repos, st.tx, catalog.WithLogger(logger.With().Str("component", "catalog").Logger()))
	exportService := export.NewService(st.repos.Cases, st.repos.CaseLogs, export.WithLogger(logger.With().Str("component", "export").Logger()))

	handlers := api.NewAPI(api.Dependencies{
		Organizations: st.repos.Organizations,
		Cases:         caseService,
		Forms:         formService,
		Catalog:       catalogService,
		Export:        export.NewHTTPHandler(exportService),
		Logger:        logger,
	})
	router := api.NewRouter(handlers, st.repos.ServiceTypes, logger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}
