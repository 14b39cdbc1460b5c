package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aretw0/moments"
	momentsource "github.com/aretw0/moments/pkg/adapters/lifecycle"
	"github.com/aretw0/moments/pkg/core"
	"github.com/aretw0/moments/pkg/metrics"
)

var (
	watchPattern     string
	watchMetricsAddr string
	watchJSON        bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show a live list that updates on every change and at midnight",
	Long: `Watch prints the list once and again whenever a moment changes, including
edits made by hand to fs documents, and at every local midnight.

With --metrics-addr, Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := listFilter()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := []moments.Option{}
		if cfg.Adapter == "fs" || cfg.Adapter == "" {
			opts = append(opts, moments.WithWatch(watchPattern))
		}

		addr := watchMetricsAddr
		if addr == "" {
			addr = cfg.MetricsAddr
		}
		var server *metrics.Server
		if addr != "" {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			opts = append(opts, moments.WithObserver(metrics.NewCollector(reg)))
			server = metrics.NewServer(addr, reg)
		}

		svc, err := openService(opts...)
		if err != nil {
			return err
		}
		defer svc.Close()

		if server != nil {
			lifecycle.Go(ctx, func(ctx context.Context) error {
				if err := server.Serve(); err != nil {
					slog.Error("metrics server failed", "addr", addr, "error", err)
					return err
				}
				return nil
			})
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()
			slog.Info("serving metrics", "addr", addr)
		}

		src := momentsource.NewSource(svc, core.WithFilter(filter))
		if err := src.Start(ctx); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for event := range src.Events() {
			snap, ok := event.(momentsource.Snapshot)
			if !ok {
				continue
			}
			if snap.Err != nil {
				return snap.Err
			}
			if watchJSON {
				if err := printJSON(out, snap.Entities); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(out, "\n-- %s --\n", time.Now().Format(time.DateTime))
			if err := printTable(out, snap.Entities); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addFilterFlags(watchCmd)
	watchCmd.Flags().StringVar(&watchPattern, "pattern", "*", "Only react to external edits of fs documents matching this glob")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Print each update as JSON")
}
