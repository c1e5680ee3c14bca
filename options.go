package props

import (
	"strings"
	"time"

	"github.com/goliatone/go-props/pkg/activity"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Option configures a Kernel.
type Option func(*kernelConfig)

type kernelConfig struct {
	logger           zerolog.Logger
	name             string
	instanceID       string
	activityHooks    activity.Hooks
	activityChannel  string
	activityVerbs    []string
	metrics          MetricsRecorder
	rawWatchWarnings bool
}

func applyOptions(opts []Option) kernelConfig {
	cfg := kernelConfig{
		logger:           zerolog.Nop(),
		name:             "props",
		rawWatchWarnings: true,
		metrics:          noopMetrics{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.instanceID == "" {
		cfg.instanceID = uuid.NewString()
	}
	return cfg
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *kernelConfig) {
		cfg.logger = logger
	}
}

// WithName labels the kernel, usually with the owning component's name. It is
// used in log fields, metric labels and activity events.
func WithName(name string) Option {
	return func(cfg *kernelConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.name = name
		}
	}
}

// WithInstanceID overrides the generated instance identifier.
func WithInstanceID(id string) Option {
	return func(cfg *kernelConfig) {
		cfg.instanceID = strings.TrimSpace(id)
	}
}

// WithActivityHooks attaches activity hooks. Hooks are cloned and nil entries
// dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *kernelConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel sets the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *kernelConfig) {
		cfg.activityChannel = channel
	}
}

// WithActivityVerbs limits emitted events to the given verbs.
func WithActivityVerbs(verbs ...string) Option {
	return func(cfg *kernelConfig) {
		cfg.activityVerbs = append([]string(nil), verbs...)
	}
}

// WithMetrics wires a recorder for apply and dispatch counters.
func WithMetrics(recorder MetricsRecorder) Option {
	return func(cfg *kernelConfig) {
		if recorder == nil {
			cfg.metrics = noopMetrics{}
			return
		}
		cfg.metrics = recorder
	}
}

// WithRawWatchWarnings toggles the diagnostic appended each time a raw
// observer fires. Enabled by default.
func WithRawWatchWarnings(enabled bool) Option {
	return func(cfg *kernelConfig) {
		cfg.rawWatchWarnings = enabled
	}
}

// MetricsRecorder receives kernel counters. pkg/metrics provides a Prometheus
// implementation.
type MetricsRecorder interface {
	ObserveApply(component, outcome string, elapsed time.Duration)
	ObserveFallbacks(component string, count int)
	ObserveDispatch(component, registry string)
	ObserveDefine(component, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveApply(string, string, time.Duration) {}
func (noopMetrics) ObserveFallbacks(string, int)               {}
func (noopMetrics) ObserveDispatch(string, string)             {}
func (noopMetrics) ObserveDefine(string, string)               {}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
