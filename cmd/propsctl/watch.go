package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/pkg/host"
	"github.com/goliatone/go-props/pkg/host/filesource"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <raw-file>",
	Short: "Re-resolve a raw file whenever it changes",
	Long: `Mounts a kernel on the raw file and prints the resolved props after every
change. Stops on SIGINT or SIGTERM.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runWatch(ctx, cmd, args[0], interval)
	},
}

func init() {
	watchCmd.Flags().Duration("interval", 200*time.Millisecond, "How often to check for pending changes")
	rootCmd.AddCommand(watchCmd)
}

type watchReport struct {
	Resolved map[string]props.Value `json:"resolved"`
	Changed  []string               `json:"changed,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func runWatch(ctx context.Context, cmd *cobra.Command, path string, interval time.Duration) error {
	doc, err := loadDocument(cmd)
	if err != nil {
		return err
	}
	enc, err := newEncoder(cmd)
	if err != nil {
		return err
	}

	source, err := filesource.New(path,
		filesource.WithComponent(doc.Component),
		filesource.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := source.Watch(); err != nil {
		return err
	}
	defer source.Close()

	k, err := newKernel[*watchReport](doc)
	if err != nil {
		return err
	}
	binding := host.New(k, source, host.WithLogger(logger))
	if err := binding.WatchAll(func(report *watchReport, _, _ props.Snapshot, info props.WatchInfo) {
		report.Changed = info.ChangedKeysAll
	}); err != nil {
		return err
	}

	if _, err := binding.Mount(&watchReport{}); err != nil {
		return fmt.Errorf("mount %s: %w", path, err)
	}
	defer binding.Unmount()
	if err := enc.encode(watchReport{Resolved: snapshotValues(k.Get())}); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report := &watchReport{}
			_, applied, err := binding.Sync(report)
			switch {
			case err != nil:
				logger.Warn().Err(err).Str("path", path).Msg("resolve failed")
				report.Error = err.Error()
			case !applied || len(report.Changed) == 0:
				continue
			}
			report.Resolved = snapshotValues(k.Get())
			if err := enc.encode(report); err != nil {
				return err
			}
		}
	}
}
