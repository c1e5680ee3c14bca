package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	props "github.com/goliatone/go-props"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func loadDocument(cmd *cobra.Command) (props.Document, error) {
	path, _ := cmd.Flags().GetString("schema")
	if path == "" {
		return props.Document{}, fmt.Errorf("--schema is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return props.Document{}, fmt.Errorf("read schema: %w", err)
	}
	doc, err := props.ParseDocument(data)
	if err != nil {
		return props.Document{}, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if doc.Component == "" {
		doc.Component = "props"
	}
	return doc, nil
}

// newKernel defines doc's schema and pushes its defaults layers in file
// order.
func newKernel[R any](doc props.Document, opts ...props.Option) (*props.Kernel[R], error) {
	opts = append([]props.Option{props.WithName(doc.Component), props.WithLogger(logger)}, opts...)
	k := props.New[R](opts...)
	if err := k.DefineSchema(doc.Schema); err != nil {
		return nil, err
	}
	for _, layer := range doc.Defaults {
		k.PushDefaults(layer)
	}
	return k, nil
}

func snapshotValues(s props.Snapshot) map[string]props.Value {
	out := make(map[string]props.Value, s.Len())
	s.Range(func(key string, value props.Value) bool {
		out[key] = value
		return true
	})
	return out
}

// encoder writes one document per call. YAML output goes through JSON so
// the json tags and value encodings apply to both.
type encoder struct {
	w      io.Writer
	format string
}

func newEncoder(cmd *cobra.Command) (*encoder, error) {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "json", "yaml":
	default:
		return nil, fmt.Errorf("invalid output format %q", format)
	}
	return &encoder{w: cmd.OutOrStdout(), format: format}, nil
}

func (e *encoder) encode(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if e.format == "json" {
		_, err = fmt.Fprintln(e.w, string(data))
		return err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.w, "---\n%s", out)
	return err
}
