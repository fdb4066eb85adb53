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

	"dormitory/db"
	"dormitory/db/migrations"
	"dormitory/internal/allocation"
	"dormitory/internal/bids"
	"dormitory/internal/clock"
	"dormitory/internal/config"
	"dormitory/internal/eviction"
	"dormitory/internal/guard"
	"dormitory/internal/handlers"
	"dormitory/internal/notify"
	"dormitory/internal/payment"
	"dormitory/internal/users"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(cCtx.String("env-prefix"))
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.PostgresConn)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer conn.Close()

	if cfg.MigrationsEnabled {
		if err := migrations.Run(ctx, conn.DB); err != nil {
			return err
		}
	}

	store := db.NewStorage(conn).WithRetries(cfg.TxMaxRetries)

	var pub notify.Publisher
	if cfg.NatsURL != "" {
		nc, err := notify.ConnectNATS(cfg.NatsURL, logger)
		if err != nil {
			return err
		}
		defer nc.Drain()
		pub = nc
	}

	c := clock.Real()
	dispatcher := notify.NewDispatcher(store, pub, logger)
	engine := eviction.New(store, c, loc)
	services := handlers.Services{
		Users: store,
		Bids: bids.NewManager(store,
			db.Runner(store, func(q *db.Queries) bids.Repository { return q }),
			dispatcher, c, logger),
		Eviction: engine,
		Rooms:    allocation.NewResidentRooms(store),
		Payments: payment.NewService(store,
			db.Runner(store, func(q *db.Queries) payment.Repository { return q }),
			c, loc, logger),
		Guard: guard.NewService(store,
			db.Runner(store, func(q *db.Queries) guard.Repository { return q }), c),
		Inbox: notify.NewInbox(store),
		Staff: users.NewService(store, engine),
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handlers.NewRouter(handlers.NewHandler(services, logger)),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	go func() {
		logger.WithField("addr", cfg.ServerAddress).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
