package potok

import (
	"log/slog"

	"github.com/mitchellh/mapstructure"
)

const defaultName = "potok"

// Option configures a Node at construction time.
type Option func(*config)

type config struct {
	logger         *slog.Logger
	observer       Observer
	onFatal        func(error)
	name           string
	passNulls      bool
	discardResults bool
}

// WithPassNulls keeps fulfilled-null outcomes in the result list and forwards
// them to chained receivers.
func WithPassNulls() Option {
	return func(c *config) {
		c.passNulls = true
	}
}

// WithDiscardResults processes every unit but keeps no outcomes. Ended
// resolves with an empty list and Chain forwards only units accepted after
// the call.
func WithDiscardResults() Option {
	return func(c *config) {
		c.discardResults = true
	}
}

// WithName sets the name used in logs, events and metric labels.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver attaches an observer to receive lifecycle events.
//
// Observers must be concurrency-safe and should not block.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if IsNil(o) {
			return
		}
		if c.observer == nil {
			c.observer = o
			return
		}
		c.observer = MultiObserver(c.observer, o)
	}
}

// WithFatalHandler replaces the default reaction to a *CompositionError,
// which is to log it and panic.
func WithFatalHandler(f func(error)) Option {
	return func(c *config) {
		c.onFatal = f
	}
}

// Options is the serializable subset of the node configuration.
type Options struct {
	PassNulls      bool   `mapstructure:"pass_nulls" yaml:"pass_nulls"`
	DiscardResults bool   `mapstructure:"discard_results" yaml:"discard_results"`
	Name           string `mapstructure:"name" yaml:"name"`
}

// DecodeOptions reads Options from an untyped map such as a parsed config
// file. Unknown keys are a configuration error.
func DecodeOptions(raw map[string]any) (Options, error) {
	var o Options
	if len(raw) == 0 {
		return o, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &o,
	})
	if err != nil {
		return Options{}, configErrorf("options decoder: %v", err)
	}
	if err := dec.Decode(raw); err != nil {
		return Options{}, configErrorf("invalid options: %v", err)
	}
	return o, nil
}

// Apply converts o into functional options.
func (o Options) Apply() []Option {
	opts := make([]Option, 0, 3)
	if o.PassNulls {
		opts = append(opts, WithPassNulls())
	}
	if o.DiscardResults {
		opts = append(opts, WithDiscardResults())
	}
	if o.Name != "" {
		opts = append(opts, WithName(o.Name))
	}
	return opts
}

func newConfig(opts []Option) config {
	c := config{name: defaultName}
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.onFatal == nil {
		logger := c.logger
		c.onFatal = func(err error) {
			logger.Error("unrecoverable composition failure", "err", err)
			panic(err)
		}
	}
	return c
}
