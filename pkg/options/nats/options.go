// Package nats provides index-queue (NATS JetStream) configuration options.
package nats

import (
	"fmt"

	"github.com/kart-io/thoughtweave/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options defines configuration for the NATS JetStream index queue.
type Options struct {
	URL string `json:"url" mapstructure:"url"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{URL: "nats://127.0.0.1:4222"}
}

// AddFlags adds flags for NATS options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, options.Join(prefixes...)+"nats.url", o.URL, "NATS server URL backing the index job queue.")
}

// Complete completes the NATS options with defaults.
func (o *Options) Complete() error {
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.URL == "" {
		errs = append(errs, fmt.Errorf("nats.url is required"))
	}
	return errs
}
