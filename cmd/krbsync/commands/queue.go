package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/krbsync/krbsync/internal/cli/output"
	"github.com/krbsync/krbsync/internal/logger"
	"github.com/krbsync/krbsync/pkg/hook"
	"github.com/krbsync/krbsync/pkg/metrics"
	promMetrics "github.com/krbsync/krbsync/pkg/metrics/prometheus"
)

var (
	processWatch    bool
	processInterval time.Duration
	purgeOlderThan  time.Duration
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and replay the retry queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued changes",
	Args:  cobra.NoArgs,
	RunE:  runQueueList,
}

var queueProcessCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Replay queued changes against Active Directory",
	Long: `Replay every queued change in timestamp order, removing each queue
file once its change has been pushed successfully. Changes that still
fail stay queued for the next run.

With a file argument, only that queue file is replayed.

With --watch the command keeps running, replaying new queue files as
they appear and retrying failed ones every --interval.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQueueProcess,
}

var queuePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove queued changes older than a cutoff",
	Long: `Remove queue files whose embedded timestamp is older than
--older-than. Stale queue files usually mean Active Directory rejected
the change permanently; purging them keeps the queue from pinning dead
entries forever.`,
	Args: cobra.NoArgs,
	RunE: runQueuePurge,
}

func init() {
	queueProcessCmd.Flags().BoolVar(&processWatch, "watch", false, "Keep running and replay new queue files as they appear")
	queueProcessCmd.Flags().DurationVar(&processInterval, "interval", 5*time.Minute, "Retry interval for failed entries in watch mode")
	queuePurgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 30*24*time.Hour, "Age beyond which queued changes are removed")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueProcessCmd)
	queueCmd.AddCommand(queuePurgeCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	h, err := hook.New(cfg)
	if err != nil {
		return err
	}
	entries, err := h.Queue().List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}

	table := output.NewTable("File", "Principal", "Operation", "Queued")
	for i := range entries {
		table.AddRow(
			filepath.Base(entries[i].Path),
			entries[i].Principal,
			entries[i].Operation,
			entries[i].Timestamp.Format(time.RFC3339),
		)
	}
	table.Render(os.Stdout)
	return nil
}

func runQueueProcess(cmd *cobra.Command, args []string) error {
	h, err := hook.New(cfg, hook.WithMetrics(setupMetrics()))
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if processWatch {
			return fmt.Errorf("--watch cannot be combined with a file argument")
		}
		if err := h.ProcessFile(args[0]); err != nil {
			return err
		}
		fmt.Printf("Processed %s\n", args[0])
		return nil
	}

	if !processWatch {
		n, err := h.Process()
		if err != nil {
			return err
		}
		fmt.Printf("Processed %d queued change(s)\n", n)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metrics.IsEnabled() {
		go serveMetrics()
	}

	logger.Info("watching queue", "dir", cfg.Queue.Dir, "interval", processInterval)
	if err := h.Watch(ctx, processInterval); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runQueuePurge(cmd *cobra.Command, args []string) error {
	h, err := hook.New(cfg)
	if err != nil {
		return err
	}
	n, err := h.Queue().Purge(purgeOlderThan)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d queued change(s)\n", n)
	return nil
}

// setupMetrics initializes the Prometheus registry when metrics are
// enabled in the configuration. Returns a nil Recorder otherwise.
func setupMetrics() metrics.Recorder {
	if !cfg.Metrics.Enabled {
		return nil
	}
	metrics.InitRegistry(prometheus.NewRegistry())
	return promMetrics.NewSyncMetrics()
}

func serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	logger.Info("serving metrics", "listen", cfg.Metrics.Listen)
	if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
		logger.Error("metrics endpoint failed", "error", err)
	}
}
