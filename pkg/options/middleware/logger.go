package middleware

import (
	"github.com/kart-io/thoughtweave/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareLogger, func() MiddlewareConfig {
		return NewLoggerOptions()
	})
}

var _ MiddlewareConfig = (*LoggerOptions)(nil)

// LoggerOptions defines logger middleware options.
type LoggerOptions struct {
	SkipPaths           []string                                 `json:"skip-paths" mapstructure:"skip-paths"`
	UseStructuredLogger bool                                     `json:"use-structured-logger" mapstructure:"use-structured-logger"`
	Output              func(format string, args ...interface{}) `json:"-" mapstructure:"-"`
}

// NewLoggerOptions creates default logger middleware options.
func NewLoggerOptions() *LoggerOptions {
	return &LoggerOptions{
		SkipPaths:           []string{"/healthz", "/metrics"},
		UseStructuredLogger: true,
	}
}

// AddFlags adds flags for logger options to the specified FlagSet.
func (o *LoggerOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.SkipPaths, options.Join(prefixes...)+"middleware.logger.skip-paths", o.SkipPaths, "Request paths excluded from access logging.")
	fs.BoolVar(&o.UseStructuredLogger, options.Join(prefixes...)+"middleware.logger.use-structured-logger", o.UseStructuredLogger, "Emit access logs through the structured logger instead of Output.")
}

// Complete completes the logger options with defaults.
func (o *LoggerOptions) Complete() error {
	return nil
}

// Validate validates the logger options.
func (o *LoggerOptions) Validate() []error {
	if o == nil {
		return nil
	}
	return nil
}
