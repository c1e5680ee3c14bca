package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var logger = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "propsctl",
	Short: "Resolve component props against a schema document",
	Long: `propsctl loads a props schema document, layers its defaults and resolves
raw attribute files the way a mounted component would.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")
		built, err := newLogger(level, format)
		if err != nil {
			return err
		}
		logger = built
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().StringP("schema", "s", "", "Schema document (YAML or JSON)")
	rootCmd.PersistentFlags().StringP("output", "o", "json", "Output format (json, yaml)")
}

func newLogger(level, format string) (zerolog.Logger, error) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch format {
	case "json":
		return zerolog.New(os.Stderr).Level(parsed).With().Timestamp().Logger(), nil
	case "console", "":
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		return zerolog.New(writer).Level(parsed).With().Timestamp().Logger(), nil
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}
}
