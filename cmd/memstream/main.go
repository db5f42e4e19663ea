// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	memstream "github.com/poiesic/memstream"
	"github.com/poiesic/memstream/ai"
	"github.com/poiesic/memstream/config"
	"github.com/poiesic/memstream/daemon"
	"github.com/urfave/cli/v2"
)

var daemonNames = []string{"run", "extract", "judge", "drain"}

func main() {
	app := &cli.App{
		Name:  "memstream",
		Usage: "Continuous conversation capture and importance triage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the extractor, judge and drainer daemons",
				Action: runCommand,
				Flags:  pipelineFlags(),
			},
			{
				Name:   "extract",
				Usage:  "Run the transcript extractor",
				Action: extractCommand,
				Flags: append(pipelineFlags(), &cli.BoolFlag{
					Name:  "once",
					Usage: "Run a single cycle and exit",
				}),
			},
			{
				Name:   "judge",
				Usage:  "Run the importance judge",
				Action: judgeCommand,
				Flags: append(pipelineFlags(), &cli.BoolFlag{
					Name:  "once",
					Usage: "Run a single cycle and exit",
				}),
			},
			{
				Name:   "drain",
				Usage:  "Run the queue drainer",
				Action: drainCommand,
				Flags: append(pipelineFlags(),
					&cli.BoolFlag{
						Name:  "once",
						Usage: "Run a single drain and exit",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Bypass the debounce window",
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Show daemon liveness",
				Action: statusCommand,
				Flags:  dataDirFlag(),
			},
			{
				Name:   "stop",
				Usage:  "Stop a running daemon",
				Action: stopCommand,
				Flags: append(dataDirFlag(), &cli.StringFlag{
					Name:  "name",
					Usage: "Daemon to stop (run, extract, judge, drain)",
					Value: "run",
				}),
			},
			{
				Name:  "queue",
				Usage: "Inspect the durable queue",
				Subcommands: []*cli.Command{
					{
						Name:   "export",
						Usage:  "Write the queue as JSONL to stdout",
						Action: queueExportCommand,
						Flags:  pipelineFlags(),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func dataDirFlag() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the data directory",
			Required: true,
		},
	}
}

func pipelineFlags() []cli.Flag {
	return append(dataDirFlag(),
		&cli.StringFlag{
			Name:     "transcripts",
			Aliases:  []string{"t"},
			Usage:    "Directory of transcript JSONL files",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "index-path",
			Usage: "Vector index directory (default: <db>/index)",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.IntFlag{
			Name:  "importance-threshold",
			Usage: "Minimum importance for an entry to persist",
			Value: 5,
		},
		&cli.IntFlag{
			Name:  "short-length",
			Usage: "Text length below which only sentiment and acknowledgment qualify",
			Value: 50,
		},
		&cli.IntFlag{
			Name:  "min-batch",
			Usage: "New records needed to trigger extraction",
			Value: 5,
		},
		&cli.DurationFlag{
			Name:  "max-wait",
			Usage: "Longest a source waits with pending records",
			Value: 5 * time.Minute,
		},
		&cli.DurationFlag{
			Name:  "debounce",
			Usage: "Minimum gap between drain runs",
			Value: 5 * time.Second,
		},
		&cli.IntFlag{
			Name:  "max-index-batch",
			Usage: "Entries indexed per drain run",
			Value: 50,
		},
		&cli.DurationFlag{
			Name:  "index-timeout",
			Usage: "Per-entry indexing timeout",
			Value: 30 * time.Second,
		},
		&cli.DurationFlag{
			Name:  "extract-interval",
			Usage: "Extractor tick interval",
			Value: 30 * time.Second,
		},
		&cli.DurationFlag{
			Name:  "judge-interval",
			Usage: "Judge tick interval",
			Value: 15 * time.Second,
		},
		&cli.DurationFlag{
			Name:  "drain-interval",
			Usage: "Drainer tick interval",
			Value: 10 * time.Second,
		},
	)
}

func buildConfig(c *cli.Context) *config.Config {
	return config.New(
		config.WithTranscriptDir(c.String("transcripts")),
		config.WithDataDir(c.String("db")),
		config.WithImportanceThreshold(c.Int("importance-threshold")),
		config.WithShortMessageLength(c.Int("short-length")),
		config.WithMinBatch(c.Int("min-batch")),
		config.WithMaxWait(c.Duration("max-wait")),
		config.WithDebounceWindow(c.Duration("debounce")),
		config.WithMaxIndexBatch(c.Int("max-index-batch")),
		config.WithIndexTimeout(c.Duration("index-timeout")),
		config.WithIntervals(
			c.Duration("extract-interval"),
			c.Duration("judge-interval"),
			c.Duration("drain-interval"),
		),
	)
}

func buildPipeline(c *cli.Context) (*memstream.Pipeline, *config.Config, error) {
	cfg := buildConfig(c)

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)

	opts := []memstream.PipelineOption{memstream.WithAIConfig(aiConfig)}
	if path := c.String("index-path"); path != "" {
		opts = append(opts, memstream.WithIndexPath(path))
	}

	p, err := memstream.NewPipeline(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

func pidPath(dataDir, name string) string {
	return filepath.Join(dataDir, "run", "memstream-"+name+".pid")
}

// startDaemon writes the PID file, installs the signal handler and runs fn
// until a stop signal arrives.
func startDaemon(c *cli.Context, name string, fn func(ctx context.Context) error) error {
	path := pidPath(c.String("db"), name)

	status, pid, err := daemon.CheckStatus(path)
	if err != nil {
		return err
	}
	if status == daemon.StatusRunning {
		return fmt.Errorf("%s daemon already running (PID %d)", name, pid)
	}

	if err := daemon.WritePIDFile(path, os.Getpid()); err != nil {
		return err
	}

	ctx, cleanup := daemon.SetupSignalHandler(c.Context, path)
	defer cleanup()

	return fn(ctx)
}

func runCommand(c *cli.Context) error {
	p, _, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.Close()

	return startDaemon(c, "run", p.Run)
}

func extractCommand(c *cli.Context) error {
	p, cfg, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.Close()

	if c.Bool("once") {
		return p.ExtractOnce(c.Context)
	}

	return startDaemon(c, "extract", func(ctx context.Context) error {
		daemon.Loop(ctx, "extractor", cfg.ExtractInterval, slog.Default(), p.ExtractOnce)
		return nil
	})
}

func judgeCommand(c *cli.Context) error {
	p, cfg, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.Close()

	// One judge at a time; duplicates waste work even though dedup
	// keeps them correct
	lock, err := daemon.AcquireLock(filepath.Join(c.String("db"), "judge.lock"))
	if err != nil {
		if errors.Is(err, daemon.ErrLockHeld) {
			return fmt.Errorf("another judge is already processing: %w", err)
		}
		return err
	}
	defer lock.Release()

	if c.Bool("once") {
		return p.JudgeOnce(c.Context)
	}

	return startDaemon(c, "judge", func(ctx context.Context) error {
		daemon.Loop(ctx, "judge", cfg.JudgeInterval, slog.Default(), p.JudgeOnce)
		return nil
	})
}

func drainCommand(c *cli.Context) error {
	p, cfg, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.Close()

	if c.Bool("once") {
		return p.DrainOnce(c.Context, c.Bool("force"))
	}

	return startDaemon(c, "drain", func(ctx context.Context) error {
		daemon.Loop(ctx, "drainer", cfg.DrainInterval, slog.Default(), func(ctx context.Context) error {
			return p.DrainOnce(ctx, false)
		})
		return nil
	})
}

func statusCommand(c *cli.Context) error {
	dataDir := c.String("db")
	for _, name := range daemonNames {
		status, pid, err := daemon.CheckStatus(pidPath(dataDir, name))
		if err != nil {
			return err
		}
		switch status {
		case daemon.StatusRunning:
			fmt.Printf("%-8s %s (PID %d)\n", name, status, pid)
		default:
			fmt.Printf("%-8s %s\n", name, status)
		}
	}
	return nil
}

func stopCommand(c *cli.Context) error {
	name := c.String("name")
	path := pidPath(c.String("db"), name)

	status, pid, err := daemon.CheckStatus(path)
	if err != nil {
		return err
	}

	switch status {
	case daemon.StatusStopped:
		fmt.Printf("%s daemon is not running\n", name)
		return nil
	case daemon.StatusStale:
		fmt.Printf("removing stale PID file (process already dead)\n")
		return daemon.RemovePIDFile(path)
	default:
		fmt.Printf("sending SIGTERM to %s daemon (PID %d)\n", name, pid)
		return daemon.Stop(path)
	}
}

func queueExportCommand(c *cli.Context) error {
	p, _, err := buildPipeline(c)
	if err != nil {
		return err
	}
	defer p.Close()

	written, err := p.ExportQueue(c.Context, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "exported %d entries\n", written)
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
