package middleware

import (
	"errors"

	"github.com/kart-io/thoughtweave/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareMetrics, func() MiddlewareConfig {
		return NewMetricsOptions()
	})
}

var _ MiddlewareConfig = (*MetricsOptions)(nil)

// MetricsOptions defines metrics options.
type MetricsOptions struct {
	Path      string `json:"path" mapstructure:"path"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	Subsystem string `json:"subsystem" mapstructure:"subsystem"`
}

// NewMetricsOptions creates default metrics options.
func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{
		Path:      "/metrics",
		Namespace: "thoughtweave",
		Subsystem: "http",
	}
}

// AddFlags adds flags for metrics options to the specified FlagSet.
func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Path, options.Join(prefixes...)+"middleware.metrics.path", o.Path, "Path serving Prometheus metrics.")
	fs.StringVar(&o.Namespace, options.Join(prefixes...)+"middleware.metrics.namespace", o.Namespace, "Metric namespace prefix.")
	fs.StringVar(&o.Subsystem, options.Join(prefixes...)+"middleware.metrics.subsystem", o.Subsystem, "Metric subsystem prefix.")
}

// Complete completes the metrics options with defaults.
func (o *MetricsOptions) Complete() error {
	return nil
}

// Validate validates the metrics options.
func (o *MetricsOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Path == "" {
		return []error{errors.New("middleware.metrics path must not be empty")}
	}
	return nil
}
