package middleware

import (
	"errors"

	"github.com/kart-io/thoughtweave/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareHealth, func() MiddlewareConfig {
		return NewHealthOptions()
	})
}

var _ MiddlewareConfig = (*HealthOptions)(nil)

// HealthOptions defines health check options.
type HealthOptions struct {
	Path          string       `json:"path" mapstructure:"path"`
	LivenessPath  string       `json:"liveness-path" mapstructure:"liveness-path"`
	ReadinessPath string       `json:"readiness-path" mapstructure:"readiness-path"`
	Checker       func() error `json:"-" mapstructure:"-"`
}

// NewHealthOptions creates default health check options.
func NewHealthOptions() *HealthOptions {
	return &HealthOptions{
		Path:          "/healthz",
		LivenessPath:  "/healthz/liveness",
		ReadinessPath: "/healthz/readiness",
	}
}

// AddFlags adds flags for health check options to the specified FlagSet.
func (o *HealthOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, options.Join(prefixes...)+"middleware.health.path", o.Path, "Path serving the aggregate health check.")
	fs.StringVar(&o.LivenessPath, options.Join(prefixes...)+"middleware.health.liveness-path", o.LivenessPath, "Path serving the liveness probe.")
	fs.StringVar(&o.ReadinessPath, options.Join(prefixes...)+"middleware.health.readiness-path", o.ReadinessPath, "Path serving the readiness probe.")
}

// Complete completes the health check options with defaults.
func (o *HealthOptions) Complete() error {
	return nil
}

// Validate validates the health check options.
func (o *HealthOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Path == "" && o.LivenessPath == "" && o.ReadinessPath == "" {
		return []error{errors.New("middleware.health requires at least one health check path")}
	}
	return nil
}
