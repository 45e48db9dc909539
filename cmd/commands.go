package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/meghashyamc/buzee/api"
	"github.com/meghashyamc/buzee/app"
	"github.com/meghashyamc/buzee/config"
	"github.com/meghashyamc/buzee/db"
	"github.com/meghashyamc/buzee/history"
	"github.com/meghashyamc/buzee/logger"
	"github.com/meghashyamc/buzee/services/search"
	"github.com/spf13/cobra"
)

// cli carries what every command needs once the root has loaded the configuration.
type cli struct {
	env       string
	cfg       *config.Config
	logger    logger.Logger
	logCloser io.Closer
}

func (c *cli) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "buzee",
		Short:         "Local-first desktop search",
		Long:          "Indexes files under the configured roots and searches them, together with browser history, from the command line or a loopback HTTP bridge.",
		Version:       app.Version,
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&c.env, "env", "", "config environment, e.g. local or test (default from ENV, then local)")
	cmd.PersistentFlags().String("app-dir", "", "directory holding the database, the index and the logs")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(c.serveCommand(), c.syncCommand(), c.searchCommand(), c.historyCommand())
	return cmd
}

// init loads .env and the config file, then lets explicitly set flags override both.
func (c *cli) init(cmd *cobra.Command) error {
	_ = godotenv.Load()

	cfg, err := config.Load(c.env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flagKeys := map[string]string{
		"app-dir":   "APP_DIR",
		"log-level": "LOG_LEVEL",
		"port":      "PORT",
		"roots":     "SYNC_ROOTS",
	}
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := cfg.Viper().BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	c.cfg = cfg
	c.logger, c.logCloser = logger.NewWithFile(logger.FileOptions{
		Path:       cfg.GetLogFilePath(),
		Level:      cfg.GetLogLevel(),
		MaxSizeMB:  cfg.GetLogMaxSizeMB(),
		MaxBackups: cfg.GetLogMaxBackups(),
		MaxAgeDays: cfg.GetLogMaxAgeDays(),
	})
	return nil
}

func (c *cli) close() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
	}
}

func (c *cli) openApp(ctx context.Context) (*app.App, error) {
	a, err := app.New(ctx, c.cfg, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open app: %w", err)
	}
	return a, nil
}

func (c *cli) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the loopback HTTP bridge and run scheduled syncs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			return api.Run(cmd.Context(), a)
		},
	}
	cmd.Flags().String("port", "", "port to listen on")
	return cmd
}

func (c *cli) syncCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync in the foreground",
		Long:  "Walks the sync roots, updates the metadata store and parses new or changed files. Interrupting stops the sync at the next checkpoint.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			start := time.Now()
			if _, err := a.Sync.Start(ctx); err != nil {
				return err
			}
			a.Sync.Wait()

			status, err := a.Sync.Status(context.Background())
			if err != nil {
				return err
			}
			if status.LastRun == nil {
				return errors.New("sync finished without a recorded run")
			}
			run := status.LastRun
			fmt.Fprintf(cmd.OutOrStdout(), "sync %s in %s: %d added, %d removed, %d parsed\n",
				run.Status, time.Since(start).Round(time.Millisecond), run.FilesAdded, run.FilesRemoved, run.FilesParsed)
			if run.Error != "" {
				return fmt.Errorf("sync failed: %s", run.Error)
			}
			return nil
		},
	}
	cmd.Flags().String("roots", "", "comma separated directories to sync instead of the configured roots")
	return cmd
}

func (c *cli) searchCommand() *cobra.Command {
	var (
		fileTypes string
		page      int
		limit     int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search indexed documents",
		Long:  `Searches file contents and metadata. Quote phrases ("quarterly report") and prefix a word with - to exclude it. Without a query the most recent documents are listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Search.Search(cmd.Context(), search.Request{
				Query:     strings.Join(args, " "),
				Page:      max(page-1, 0),
				Limit:     limit,
				FileTypes: search.ParseFileTypes(fileTypes),
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return printResults(cmd.OutOrStdout(), results, asJSON)
		},
	}

	cmd.Flags().StringVar(&fileTypes, "filetype", "", "comma separated file types, e.g. pdf,docx")
	cmd.Flags().IntVar(&page, "page", 1, "page of results, starting at 1")
	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func (c *cli) historyCommand() *cobra.Command {
	var (
		profile string
		page    int
		limit   int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "history <chrome|firefox|arc> [query]",
		Short: "Search browser history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			browser, err := history.ParseBrowser(args[0])
			if err != nil {
				return err
			}

			home := c.cfg.GetHistoryHome()
			if home == "" {
				if home, err = os.UserHomeDir(); err != nil {
					return err
				}
			}
			reader := history.New(c.logger, home)

			results, err := reader.Search(cmd.Context(), browser, profile, strings.Join(args[1:], " "), max(page-1, 0), limit)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results, asJSON)
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "browser profile id or name (Chromium browsers)")
	cmd.Flags().IntVar(&page, "page", 1, "page of results, starting at 1")
	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func printResults(w io.Writer, results []db.DocumentSearchResult, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}
	for i, result := range results {
		name := result.Name
		if name == "" {
			name = result.Path
		}
		fmt.Fprintf(w, "[%d] %s (%s)\n    %s\n", i+1, name, result.FileType, result.Path)
	}
	return nil
}
