package main

import (
	"fmt"
	"os"

	props "github.com/goliatone/go-props"
	"github.com/goliatone/go-props/internal/hydrate"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [raw-file...]",
	Short: "Resolve a sequence of raw files",
	Long: `Applies each raw file in order to a fresh kernel built from the schema
document. The first file hydrates; later files report the keys whose resolved
value changed. With no files a single empty apply is reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withTrace, _ := cmd.Flags().GetBool("trace")
		return runResolve(cmd, args, withTrace)
	},
}

func init() {
	resolveCmd.Flags().Bool("trace", false, "Include the per-field resolution trace")
	rootCmd.AddCommand(resolveCmd)
}

type stepReport struct {
	Step        int                    `json:"step"`
	Source      string                 `json:"source,omitempty"`
	Hydration   bool                   `json:"hydration,omitempty"`
	Resolved    map[string]props.Value `json:"resolved"`
	Changed     []string               `json:"changed,omitempty"`
	Provided    []string               `json:"provided,omitempty"`
	Invalid     []string               `json:"invalid,omitempty"`
	Fallbacks   []string               `json:"fallbacks,omitempty"`
	Accepted    []string               `json:"accepted_empty,omitempty"`
	Trace       *props.Trace           `json:"trace,omitempty"`
	Diagnostics []props.Diagnostic     `json:"diagnostics,omitempty"`
}

func runResolve(cmd *cobra.Command, files []string, withTrace bool) error {
	doc, err := loadDocument(cmd)
	if err != nil {
		return err
	}
	enc, err := newEncoder(cmd)
	if err != nil {
		return err
	}
	k, err := newKernel[*stepReport](doc)
	if err != nil {
		return err
	}
	if err := k.WatchAll(func(report *stepReport, _, _ props.Snapshot, info props.WatchInfo) {
		report.Changed = info.ChangedKeysAll
	}); err != nil {
		return err
	}

	decoder := hydrate.NewDecoder()
	sources := files
	if len(sources) == 0 {
		sources = []string{""}
	}

	for i, source := range sources {
		raw := map[string]any{}
		if source != "" {
			data, err := os.ReadFile(source)
			if err != nil {
				return fmt.Errorf("read raw file: %w", err)
			}
			raw, err = decoder.Decode(hydrate.Context{Source: source, Component: doc.Component}, data)
			if err != nil {
				return err
			}
		}

		report := &stepReport{Step: i + 1, Source: source, Hydration: !k.Hydrated()}
		meta, err := k.Apply(raw, report)
		if err != nil {
			return fmt.Errorf("apply %s: %w", describeSource(source), err)
		}

		report.Resolved = snapshotValues(k.Get())
		report.Provided = meta.ProvidedKeys
		report.Invalid = meta.InvalidKeys
		report.Fallbacks = meta.UsedFallbackKeys
		report.Accepted = meta.AcceptedEmptyKeys
		if withTrace {
			report.Trace = &meta.Trace
		}
		if i == len(sources)-1 {
			report.Diagnostics = k.Diagnostics()
		}
		if err := enc.encode(report); err != nil {
			return err
		}
	}
	return nil
}

func describeSource(source string) string {
	if source == "" {
		return "empty input"
	}
	return source
}
