package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dormitory/db/migrations"
	"dormitory/internal/config"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Apply database migrations",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "status",
			Usage: "Only print migration status",
		},
	},
	Action: migrate,
}

func migrate(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cCtx.String("env-prefix"))
	if err != nil {
		return err
	}

	conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.PostgresConn)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer conn.Close()

	if cCtx.Bool("status") {
		return migrations.Status(ctx, conn.DB)
	}
	return migrations.Run(ctx, conn.DB)
}
