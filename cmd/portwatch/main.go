package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/herratomsiili/portwatch/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := command().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "portwatch: %v\n", err)
		return 1
	}
	return 0
}

func command() *cli.Command {
	return &cli.Command{
		Name:    "portwatch",
		Usage:   "Follow port calls, arrivals and vessel positions",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file (defaults to ~/.config/portwatch/config.toml)",
			},
			&cli.DurationFlag{
				Name:  "poll",
				Usage: "Vessel poll interval, overriding the config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :9090",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return app.Run(ctx, options(cmd))
		},
		Commands: []*cli.Command{
			{
				Name:      "drain",
				Usage:     "Page through a collection and print it as JSON",
				ArgsUsage: "<" + strings.Join(app.Collections, "|") + ">",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					which := cmd.Args().First()
					if which == "" {
						return cli.Exit("drain needs a collection: "+strings.Join(app.Collections, " or "), 2)
					}
					return app.Drain(ctx, options(cmd), which, os.Stdout)
				},
			},
			{
				Name:  "watch",
				Usage: "Poll vessel positions and print a line per poll",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return app.Watch(ctx, options(cmd), os.Stdout)
				},
			},
		},
	}
}

func options(cmd *cli.Command) app.Options {
	return app.Options{
		ConfigPath:  cmd.String("config"),
		PollEvery:   cmd.Duration("poll"),
		LogLevel:    cmd.String("log-level"),
		MetricsAddr: cmd.String("metrics-addr"),
	}
}
