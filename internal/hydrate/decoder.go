// Package hydrate turns JSON or YAML documents into raw props maps.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-props/layering"
	"gopkg.in/yaml.v3"
)

// Format selects the document syntax.
type Format string

const (
	FormatAuto Format = ""
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath maps a file extension to a Format. Unknown extensions yield
// FormatAuto.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// Context carries identifiers tied to a raw payload.
type Context struct {
	Source    string
	Component string
}

// PreHook lets callers mutate or normalise the payload before it is checked.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers validate the final payload.
type PostHook func(Context, map[string]any) error

// CustomDecoder replaces the built-in JSON/YAML parsing when provided.
type CustomDecoder func(Context, []byte) (map[string]any, error)

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts documents into raw props payloads.
type Decoder struct {
	format    Format
	preHooks  []PreHook
	postHooks []PostHook
	useNumber bool
	known     map[string]struct{}
	custom    CustomDecoder
}

// WithFormat pins the document syntax instead of sniffing it.
func WithFormat(format Format) DecoderOption {
	return func(d *Decoder) {
		d.format = format
	}
}

// WithPreHook applies hook after parsing.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook once the payload passed every check.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber keeps JSON numbers as json.Number.
func WithUseNumber() DecoderOption {
	return func(d *Decoder) {
		d.useNumber = true
	}
}

// WithKnownKeys rejects payloads carrying keys outside keys.
func WithKnownKeys(keys ...string) DecoderOption {
	return func(d *Decoder) {
		if d.known == nil {
			d.known = make(map[string]struct{}, len(keys))
		}
		for _, key := range keys {
			d.known[key] = struct{}{}
		}
	}
}

// WithCustomDecoder replaces the built-in parsing path.
func WithCustomDecoder(decoder CustomDecoder) DecoderOption {
	return func(d *Decoder) {
		d.custom = decoder
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode parses data into a raw payload and runs the configured hooks. A
// blank or null document decodes to an empty payload.
func (d *Decoder) Decode(ctx Context, data []byte) (map[string]any, error) {
	var (
		payload map[string]any
		err     error
	)
	if d.custom != nil {
		payload, err = d.custom(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("hydrate: custom decoder for %q failed: %w", ctx.Source, err)
		}
	} else {
		payload, err = d.parse(data, d.formatFor(ctx, data))
		if err != nil {
			return nil, fmt.Errorf("hydrate: decode %q: %w", ctx.Source, err)
		}
	}
	return d.finish(ctx, payload)
}

// DecodeMap runs the hooks and checks against an already parsed payload. The
// input map is not modified.
func (d *Decoder) DecodeMap(ctx Context, payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return nil, fmt.Errorf("hydrate: payload is nil for %q", ctx.Source)
	}
	return d.finish(ctx, layering.Clone(payload))
}

func (d *Decoder) finish(ctx Context, current map[string]any) (map[string]any, error) {
	if current == nil {
		current = map[string]any{}
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.Source, err)
		}
		if next != nil {
			current = next
		}
	}

	if d.known != nil {
		var unknown []string
		for key := range current {
			if _, ok := d.known[key]; !ok {
				unknown = append(unknown, key)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return nil, fmt.Errorf("hydrate: %q carries unknown keys %s", ctx.Source, strings.Join(unknown, ", "))
		}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, current); err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.Source, err)
		}
	}
	return current, nil
}

func (d *Decoder) formatFor(ctx Context, data []byte) Format {
	if d.format != FormatAuto {
		return d.format
	}
	if format := FormatFromPath(ctx.Source); format != FormatAuto {
		return format
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

func (d *Decoder) parse(data []byte, format Format) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	var out any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if d.useNumber {
			dec.UseNumber()
		}
		if err := dec.Decode(&out); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	switch payload := out.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return payload, nil
	default:
		return nil, fmt.Errorf("document root must be an object, got %T", out)
	}
}
