package middleware

import (
	"errors"

	"github.com/kart-io/thoughtweave/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareRequestID, func() MiddlewareConfig {
		return NewRequestIDOptions()
	})
}

var _ MiddlewareConfig = (*RequestIDOptions)(nil)

// RequestIDOptions defines request ID middleware options.
type RequestIDOptions struct {
	Header    string        `json:"header" mapstructure:"header"`
	Generator func() string `json:"-" mapstructure:"-"`
}

// NewRequestIDOptions creates default request ID middleware options.
func NewRequestIDOptions() *RequestIDOptions {
	return &RequestIDOptions{
		Header: "X-Request-ID",
	}
}

// AddFlags adds flags for request ID options to the specified FlagSet.
func (o *RequestIDOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Header, options.Join(prefixes...)+"middleware.request-id.header", o.Header, "Header name used to propagate the request ID.")
}

// Complete completes the request ID options with defaults.
func (o *RequestIDOptions) Complete() error {
	if o.Header == "" {
		o.Header = "X-Request-ID"
	}
	return nil
}

// Validate validates the request ID options.
func (o *RequestIDOptions) Validate() []error {
	if o == nil {
		return nil
	}
	if o.Header == "" {
		return []error{errors.New("middleware.request-id.header must not be empty")}
	}
	return nil
}
