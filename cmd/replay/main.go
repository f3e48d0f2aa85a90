// Command replay runs the recording/replay engine and its control surface.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivikasavnish/go-replay/pkg/codec"
	"github.com/ivikasavnish/go-replay/pkg/config"
	"github.com/ivikasavnish/go-replay/pkg/executor"
	"github.com/ivikasavnish/go-replay/pkg/executor/rodexec"
	"github.com/ivikasavnish/go-replay/pkg/executor/wsexec"
	"github.com/ivikasavnish/go-replay/pkg/recorder"
	"github.com/ivikasavnish/go-replay/pkg/replay"
	"github.com/ivikasavnish/go-replay/pkg/server"
	"github.com/ivikasavnish/go-replay/pkg/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "replay",
		Short: "Browser action recording and replay engine",
		Long: `Record browser interactions as portable action logs, replay them
against a live page, and export them as Selenium, Puppeteer or
Playwright scripts.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")

	rootCmd.AddCommand(newServeCommand(&configPath))
	rootCmd.AddCommand(newExportCommand(&configPath))
	rootCmd.AddCommand(newListCommand(&configPath))
	return rootCmd
}

func openStore(cfg config.Config) (store.Store, error) {
	if cfg.Store.Dir == "" {
		return store.NewMemoryStore(), nil
	}
	return store.NewFileStore(cfg.Store.Dir)
}

func buildExecutor(cfg config.Config, logger *log.Logger) (executor.Executor, func(), error) {
	switch cfg.Executor.Mode {
	case "rod":
		exec := rodexec.New(rodexec.Config{
			Headless:   cfg.Executor.Rod.Headless,
			ControlURL: cfg.Executor.Rod.BrowserURL,
		})
		if err := exec.Start(); err != nil {
			return nil, nil, fmt.Errorf("start browser: %w", err)
		}
		return exec, func() { exec.Stop() }, nil

	default: // ws
		bridge := wsexec.New(wsexec.Config{
			ListenAddr: cfg.Executor.WS.ListenAddr,
			Token:      cfg.Executor.WS.Token,
			Timeout:    time.Duration(cfg.Executor.WS.TimeoutMS) * time.Millisecond,
		})
		if err := bridge.Start(); err != nil {
			return nil, nil, fmt.Errorf("start bridge: %w", err)
		}
		logger.Printf("waiting for a page to connect on ws://%s/ws", bridge.Addr())
		stop := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			bridge.Close(ctx)
		}
		return bridge, stop, nil
	}
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with its HTTP control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			logger := log.New(os.Stderr, "replay: ", log.LstdFlags)

			st, err := openStore(cfg)
			if err != nil {
				return err
			}

			exec, stopExec, err := buildExecutor(cfg, logger)
			if err != nil {
				return err
			}
			defer stopExec()

			rec := recorder.New(st,
				recorder.WithLogger(logger),
				recorder.WithTypeDebounce(cfg.Recorder.TypeDebounce()),
				recorder.WithMinScrollDistance(cfg.Recorder.MinScrollDistance),
			)
			rep := replay.New(exec, replay.WithLogger(logger))
			srv := server.New(rec, rep, st, server.WithLogger(logger))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(cfg.Server.Addr) }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Printf("received %s, shutting down", sig)
				return nil
			}
		},
	}
}

func newExportCommand(configPath *string) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export <recording-id>",
		Short: "Export a stored recording as a portable bundle or script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}

			rec, err := st.Load(args[0])
			if err != nil {
				return err
			}

			var out string
			if format == "portable" {
				data, err := codec.MarshalBundle(rec)
				if err != nil {
					return err
				}
				out = string(data)
			} else {
				out, err = codec.Compile(codec.Format(format), rec.Actions, codec.Options{})
				if err != nil {
					return err
				}
			}

			if output == "" {
				fmt.Print(out)
				return nil
			}
			return os.WriteFile(output, []byte(out), 0o644)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "portable", "portable, selenium-python, puppeteer-js or playwright-js")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored recordings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}

			recs, err := st.List()
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("no recordings")
				return nil
			}
			for _, rec := range recs {
				fmt.Printf("%s  %-30s  %4d actions  %s\n",
					rec.ID, rec.Name, len(rec.Actions), rec.Duration.Round(time.Millisecond))
			}
			return nil
		},
	}
}
