package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-permalink/internal/api"
	"github.com/joeblew999/plat-permalink/internal/permalink"
	"github.com/joeblew999/plat-permalink/internal/server"
)

// Options defines all CLI flags and env vars for the permalink server.
// Flags: --host, --port, --data-dir, --web-dir, --catalog, --store, --mode, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_STORE, ...
type Options struct {
	Host          string `doc:"Host to bind to" default:"0.0.0.0"`
	Port          int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir       string `doc:"Directory for catalog and stored params" default:".data"`
	WebDir        string `doc:"Optional web/ directory with static files and fragment overrides"`
	Catalog       string `doc:"Catalog seed file (.yaml, .toml or .json)"`
	Store         string `doc:"Local-storage backend" enum:"memory,bolt,duckdb" default:"bolt"`
	Mode          string `doc:"Default addressing mode" enum:"query,hash,nested" default:"query"`
	LocalStorage  bool   `doc:"Read and mirror params through local storage"`
	WriteLocation bool   `doc:"Write every new address back to the location" default:"true"`
	LinkText      string `doc:"Permalink text" default:"Permalink"`
	LogLevel      string `doc:"Log level" enum:"debug,info,warn,error" default:"info"`
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newServer(opts *Options) *server.Server {
	logger := newLogger(opts.LogLevel)
	slog.SetDefault(logger)
	srv, err := server.New(server.Config{
		Host:          opts.Host,
		Port:          fmt.Sprintf("%d", opts.Port),
		DataDir:       opts.DataDir,
		WebDir:        opts.WebDir,
		Catalog:       opts.Catalog,
		Store:         opts.Store,
		Mode:          opts.Mode,
		LocalStorage:  opts.LocalStorage,
		WriteLocation: opts.WriteLocation,
		LinkText:      opts.LinkText,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("starting server", "err", err)
		os.Exit(1)
	}
	return srv
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var httpServer *http.Server

		hooks.OnStart(func() {
			srv := newServer(opts)
			defer srv.Close()

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-permalink API server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s (%s store)\n", opts.DataDir, opts.Store)
			fmt.Println()
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("server error", "err", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
		})
	})

	cli.Root().Use = "permalink"
	cli.Root().Short = "Keeps map viewports and permalink addresses in sync"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.Store = "memory"
			srv := newServer(opts)
			defer srv.Close()
			useYAML, _ := cmd.Flags().GetBool("yaml")
			printValue(srv.OpenAPI(), useYAML)
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// aliases subcommand: print the overlay alias table
	aliasesCmd := &cobra.Command{
		Use:   "aliases",
		Short: "Print the param key of every overlay in the catalog",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.Store = "memory"
			srv := newServer(opts)
			defer srv.Close()
			aliases := srv.Services().Catalog.Aliases()

			if !isatty.IsTerminal(os.Stdout.Fd()) {
				printValue(aliases, true)
				return
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OVERLAY\tALIAS")
			for _, a := range aliases {
				fmt.Fprintf(tw, "%s\t%s\n", a.ID, a.Alias)
			}
			tw.Flush()
		}),
	}
	cli.Root().AddCommand(aliasesCmd)

	// resolve subcommand: read the params of an address
	resolveCmd := &cobra.Command{
		Use:   "resolve <href>",
		Short: "Print the params, base URL and rebuilt address of an href",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			mode, err := permalink.ParseMode(opts.Mode)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			useYAML, _ := cmd.Flags().GetBool("yaml")
			printValue(api.Resolve(strings.TrimSpace(args[0]), mode), useYAML)
		}),
	}
	resolveCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(resolveCmd)

	cli.Run()
}

func printValue(v any, useYAML bool) {
	var output []byte
	var err error
	if useYAML {
		output, err = yaml.Marshal(v)
	} else {
		output, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}
