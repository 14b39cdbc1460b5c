package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/moments"
)

var (
	verbose   bool
	storePath string
	adapter   string
	format    string
	readOnly  bool

	cfg moments.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "moments",
	Short: "Track dates that matter and count down to them",
	Long: `Moments keeps a list of dated events, one-off or repeating, and shows how
many days are left until (or have passed since) each one.

Configuration is read from MOMENTS_* environment variables; flags win.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = moments.LoadConfig()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("path") {
			cfg.Path = storePath
		}
		if flags.Changed("adapter") {
			cfg.Adapter = adapter
		}
		if flags.Changed("format") {
			cfg.Format = format
		}
		if flags.Changed("read-only") {
			cfg.ReadOnly = readOnly
		}

		level := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&storePath, "path", "p", "", "Store location (default: nearest store above the working directory)")
	flags.StringVar(&adapter, "adapter", "fs", "Storage adapter: fs, sqlite or memory")
	flags.StringVar(&format, "format", "json", "Document format for new fs records: json or yaml")
	flags.BoolVar(&readOnly, "read-only", false, "Refuse every write")
}

// openService opens the configured store. Without an explicit path the
// nearest store above the working directory is used, falling back to the
// working directory itself.
func openService(extra ...moments.Option) (*moments.Service, error) {
	path := cfg.Path
	if path == "" || path == "." {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		path = wd
		if root, err := moments.FindStoreRoot(wd); err == nil {
			path = root
		}
	}

	opts := append(cfg.Options(), moments.WithLogger(slog.Default()))
	opts = append(opts, extra...)
	svc, err := moments.New(path, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return svc, nil
}
