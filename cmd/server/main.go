package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"hrpay/internal/app/server"
	"hrpay/internal/platform/config"
	"hrpay/internal/platform/crypto"
	"hrpay/internal/platform/db"
	"hrpay/internal/platform/logger"
)

const version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "hrpay"
	app.Usage = "Encrypted salary records service"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "load configuration from `FILE`",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "run the HTTP API",
			Action: serve,
		},
		{
			Name:   "migrate",
			Usage:  "apply pending database migrations and exit",
			Action: migrate,
		},
		{
			Name:   "keygen",
			Usage:  "print a new DATA_ENCRYPTION_KEY",
			Action: keygen,
		},
	}
	app.Action = serve

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func load(c *cli.Context) (config.Config, logger.Logger, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat), nil
}

func serve(c *cli.Context) error {
	cfg, log, err := load(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewWithLogger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}

func migrate(c *cli.Context) error {
	cfg, log, err := load(c)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	ctx := context.Background()
	pool, conn, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	defer conn.Close()

	applied, err := db.Migrate(ctx, conn)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		log.Infof("schema is up to date")
		return nil
	}
	log.Infof("applied migrations %v", applied)
	return nil
}

func keygen(*cli.Context) error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}
