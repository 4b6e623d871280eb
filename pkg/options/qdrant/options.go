// Package qdrant provides Qdrant vector index configuration options.
package qdrant

import (
	"fmt"
	"os"

	"github.com/kart-io/thoughtweave/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options defines configuration for the Qdrant-backed vector index.
type Options struct {
	URL            string `json:"url" mapstructure:"url"`
	APIKey         string `json:"-" mapstructure:"api-key"`
	CollectionName string `json:"collection" mapstructure:"collection"`
	VectorSize     int    `json:"vector-size" mapstructure:"vector-size"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		URL:            "127.0.0.1:6334",
		CollectionName: "thoughtweave",
		VectorSize:     1024,
	}
}

// AddFlags adds flags for Qdrant options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.URL, options.Join(prefixes...)+"qdrant.url", o.URL, "Qdrant gRPC host:port.")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"qdrant.api-key", o.APIKey, "Qdrant API key (DEPRECATED: use QDRANT_API_KEY env var instead).")
	fs.StringVar(&o.CollectionName, options.Join(prefixes...)+"qdrant.collection", o.CollectionName, "Qdrant collection name shared by thoughts and conversations.")
	fs.IntVar(&o.VectorSize, options.Join(prefixes...)+"qdrant.vector-size", o.VectorSize, "Embedding dimensionality of the configured provider.")
}

// Complete fills in fields sourced from the environment.
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("QDRANT_API_KEY")
	}
	return nil
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.URL == "" {
		errs = append(errs, fmt.Errorf("qdrant.url is required"))
	}
	if o.CollectionName == "" {
		errs = append(errs, fmt.Errorf("qdrant.collection is required"))
	}
	if o.VectorSize <= 0 {
		errs = append(errs, fmt.Errorf("qdrant.vector-size must be positive"))
	}
	return errs
}
