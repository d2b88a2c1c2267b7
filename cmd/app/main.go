package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/dagaz/internal"
	pkgconfig "github.com/starford/dagaz/pkg/config"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := internal.NewDefaultConfig()
	if configPath := cmd.String("config"); configPath != "" {
		// Parse, don't Load: a config file may carry only optional values
		// and leave the state file and root to the positional arguments,
		// so validation waits until the merge below is done.
		if err := pkgconfig.Parse(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}

	args := cmd.Args()
	if args.Len() > 2 {
		return fmt.Errorf("unexpected argument: %s", args.Get(2))
	}
	if args.Len() > 0 {
		cfg.State.File = args.Get(0)
	}
	if args.Len() > 1 {
		cfg.Scan.Root = args.Get(1)
	}

	// Flags override whatever the config file set.
	if cmd.IsSet("exclude") {
		cfg.Scan.Excludes = cmd.StringSlice("exclude")
	}
	if cmd.IsSet("algo") {
		cfg.Scan.Algorithm = cmd.String("algo")
	}
	if cmd.IsSet("no-write") {
		cfg.State.NoWrite = cmd.Bool("no-write")
	}
	if cmd.IsSet("follow-symlinks") {
		cfg.Scan.FollowSymlinks = cmd.Bool("follow-symlinks")
	}
	if cmd.IsSet("target") {
		cfg.Sync.Target = cmd.String("target")
	}
	if cmd.IsSet("workers") {
		cfg.Scan.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("watch") {
		cfg.Watch.Enabled = cmd.Bool("watch")
	}
	if cmd.IsSet("log-level") {
		var level slog.Level
		if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return fmt.Errorf("invalid log level %q: %w", cmd.String("log-level"), err)
		}
		cfg.App.LogLevel = level
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "dagaz",
		Usage:     "Index a directory tree by content hash, diff against the previous state, and optionally mirror changes onto a target",
		ArgsUsage: "STATE_FILE DIR",
		Action:    run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				Sources: cli.EnvVars("DAGAZ_CONFIG_FILE"),
			},
			&cli.StringSliceFlag{
				Name:    "exclude",
				Aliases: []string{"x"},
				Usage:   "Glob pattern to exclude (repeatable; bare directory names prune their subtree)",
			},
			&cli.StringFlag{
				Name:  "algo",
				Usage: "Hash algorithm: blake3 (cryptographic) or xxh3 (fast)",
				Value: "blake3",
			},
			&cli.BoolFlag{
				Name:  "no-write",
				Usage: "Print changes without persisting the new state",
			},
			&cli.BoolFlag{
				Name:  "follow-symlinks",
				Usage: "Follow symlinks during the scan",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "Mirror changes onto this directory",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Hashing/sync workers (0 = all CPU cores)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep watching the source tree and re-run on changes",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: debug, info, warn, error",
				Sources: cli.EnvVars("DAGAZ_LOG_LEVEL"),
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
