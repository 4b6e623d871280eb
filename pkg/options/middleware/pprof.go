package middleware

import (
	"errors"

	"github.com/kart-io/thoughtweave/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewarePprof, func() MiddlewareConfig {
		return NewPprofOptions()
	})
}

var _ MiddlewareConfig = (*PprofOptions)(nil)

// PprofOptions defines pprof options.
type PprofOptions struct {
	Prefix               string `json:"prefix" mapstructure:"prefix"`
	EnableCmdline        bool   `json:"enable-cmdline" mapstructure:"enable-cmdline"`
	EnableProfile        bool   `json:"enable-profile" mapstructure:"enable-profile"`
	EnableSymbol         bool   `json:"enable-symbol" mapstructure:"enable-symbol"`
	EnableTrace          bool   `json:"enable-trace" mapstructure:"enable-trace"`
	BlockProfileRate     int    `json:"block-profile-rate" mapstructure:"block-profile-rate"`
	MutexProfileFraction int    `json:"mutex-profile-fraction" mapstructure:"mutex-profile-fraction"`
}

// NewPprofOptions creates default pprof options.
func NewPprofOptions() *PprofOptions {
	return &PprofOptions{
		Prefix:        "/debug/pprof",
		EnableProfile: true,
		EnableTrace:   true,
	}
}

// Validate validates pprof options.
func (o *PprofOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Prefix == "" {
		errs = append(errs, errors.New("middleware.pprof prefix must not be empty"))
	} else if o.Prefix[0] != '/' {
		errs = append(errs, errors.New("middleware.pprof prefix must start with '/'"))
	}
	if o.BlockProfileRate < 0 {
		errs = append(errs, errors.New("middleware.pprof block profile rate must not be negative"))
	}
	if o.MutexProfileFraction < 0 {
		errs = append(errs, errors.New("middleware.pprof mutex profile fraction must not be negative"))
	}
	return errs
}

// Complete completes pprof options with defaults.
func (o *PprofOptions) Complete() error {
	if o.Prefix == "" {
		o.Prefix = "/debug/pprof"
	}
	return nil
}

// AddFlags adds flags for pprof options to the specified FlagSet.
func (o *PprofOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	prefix := options.Join(prefixes...) + "middleware.pprof."

	fs.StringVar(&o.Prefix, prefix+"prefix", o.Prefix,
		"URL prefix serving pprof endpoints.")
	fs.BoolVar(&o.EnableCmdline, prefix+"enable-cmdline", o.EnableCmdline,
		"Expose the pprof cmdline endpoint.")
	fs.BoolVar(&o.EnableProfile, prefix+"enable-profile", o.EnableProfile,
		"Expose the pprof CPU profile endpoint.")
	fs.BoolVar(&o.EnableSymbol, prefix+"enable-symbol", o.EnableSymbol,
		"Expose the pprof symbol endpoint.")
	fs.BoolVar(&o.EnableTrace, prefix+"enable-trace", o.EnableTrace,
		"Expose the pprof trace endpoint.")
	fs.IntVar(&o.BlockProfileRate, prefix+"block-profile-rate", o.BlockProfileRate,
		"runtime.SetBlockProfileRate value applied when pprof is enabled.")
	fs.IntVar(&o.MutexProfileFraction, prefix+"mutex-profile-fraction", o.MutexProfileFraction,
		"runtime.SetMutexProfileFraction value applied when pprof is enabled.")
}

// WithPprof configures and enables pprof endpoints.
func WithPprof(prefix string, blockRate, mutexFraction int) Option {
	return func(o *Options) {
		o.DisablePprof = false
		if prefix != "" {
			o.Pprof.Prefix = prefix
		}
		if blockRate >= 0 {
			o.Pprof.BlockProfileRate = blockRate
		}
		if mutexFraction >= 0 {
			o.Pprof.MutexProfileFraction = mutexFraction
		}
	}
}

// WithoutPprof disables pprof endpoints.
func WithoutPprof() Option {
	return func(o *Options) { o.DisablePprof = true }
}
