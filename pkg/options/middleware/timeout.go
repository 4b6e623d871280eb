package middleware

import (
	"errors"
	"time"

	"github.com/kart-io/thoughtweave/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareTimeout, func() MiddlewareConfig {
		return NewTimeoutOptions()
	})
}

var _ MiddlewareConfig = (*TimeoutOptions)(nil)

// TimeoutOptions defines timeout middleware options.
type TimeoutOptions struct {
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	SkipPaths []string      `json:"skip-paths" mapstructure:"skip-paths"`
}

// NewTimeoutOptions creates default timeout middleware options.
func NewTimeoutOptions() *TimeoutOptions {
	return &TimeoutOptions{
		Timeout: 30 * time.Second,
	}
}

// Validate validates timeout options.
func (o *TimeoutOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Timeout <= 0 {
		errs = append(errs, errors.New("middleware.timeout.duration must be positive"))
	}
	return errs
}

// Complete completes timeout options with defaults.
func (o *TimeoutOptions) Complete() error {
	return nil
}

// AddFlags adds flags for timeout options to the specified FlagSet.
func (o *TimeoutOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.timeout."

	fs.DurationVar(&o.Timeout, prefix+"duration", o.Timeout,
		"Per-request timeout budget.")
	fs.StringSliceVar(&o.SkipPaths, prefix+"skip-paths", o.SkipPaths,
		"Paths exempt from the request timeout.")
}

// WithTimeout configures and enables timeout middleware.
func WithTimeout(timeout time.Duration, skipPaths []string) Option {
	return func(o *Options) {
		o.DisableTimeout = false
		o.Timeout.Timeout = timeout
		if skipPaths != nil {
			o.Timeout.SkipPaths = skipPaths
		}
	}
}

// WithoutTimeout disables timeout middleware.
func WithoutTimeout() Option {
	return func(o *Options) { o.DisableTimeout = true }
}
