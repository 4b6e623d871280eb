package middleware

import (
	"fmt"

	"github.com/kart-io/thoughtweave/pkg/options"
	"github.com/spf13/pflag"
)

func init() {
	Register(MiddlewareCORS, func() MiddlewareConfig {
		return NewCORSOptions()
	})
}

var _ MiddlewareConfig = (*CORSOptions)(nil)

// CORSOptions defines CORS middleware options.
type CORSOptions struct {
	AllowOrigins     []string `json:"allow-origins" mapstructure:"allow-origins"`
	AllowMethods     []string `json:"allow-methods" mapstructure:"allow-methods"`
	AllowHeaders     []string `json:"allow-headers" mapstructure:"allow-headers"`
	ExposeHeaders    []string `json:"expose-headers" mapstructure:"expose-headers"`
	AllowCredentials bool     `json:"allow-credentials" mapstructure:"allow-credentials"`
	MaxAge           int      `json:"max-age" mapstructure:"max-age"`
}

// NewCORSOptions creates default CORS middleware options.
func NewCORSOptions() *CORSOptions {
	return &CORSOptions{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		MaxAge:       600,
	}
}

// AddFlags adds flags for CORS options to the specified FlagSet.
func (o *CORSOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringSliceVar(&o.AllowOrigins, options.Join(prefixes...)+"middleware.cors.allow-origins", o.AllowOrigins, "Origins allowed to make cross-origin requests.")
	fs.StringSliceVar(&o.AllowMethods, options.Join(prefixes...)+"middleware.cors.allow-methods", o.AllowMethods, "HTTP methods allowed for cross-origin requests.")
	fs.StringSliceVar(&o.AllowHeaders, options.Join(prefixes...)+"middleware.cors.allow-headers", o.AllowHeaders, "Headers allowed in cross-origin requests.")
	fs.StringSliceVar(&o.ExposeHeaders, options.Join(prefixes...)+"middleware.cors.expose-headers", o.ExposeHeaders, "Headers exposed to the browser in the response.")
	fs.BoolVar(&o.AllowCredentials, options.Join(prefixes...)+"middleware.cors.allow-credentials", o.AllowCredentials, "Allow cookies and credentials on cross-origin requests.")
	fs.IntVar(&o.MaxAge, options.Join(prefixes...)+"middleware.cors.max-age", o.MaxAge, "Seconds a preflight response may be cached by the browser.")
}

// Complete completes the CORS options with defaults.
func (o *CORSOptions) Complete() error {
	if len(o.AllowOrigins) == 0 {
		o.AllowOrigins = []string{"*"}
	}
	return nil
}

// Validate validates the CORS options.
func (o *CORSOptions) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if len(o.AllowOrigins) == 0 {
		errs = append(errs, fmt.Errorf("middleware.cors.allow-origins requires at least one origin"))
	}
	if len(o.AllowMethods) == 0 {
		errs = append(errs, fmt.Errorf("middleware.cors.allow-methods requires at least one method"))
	}
	if o.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("middleware.cors max age must not be negative"))
	}
	return errs
}
