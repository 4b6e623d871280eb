// Package component defines the component interfaces.
package component

import "github.com/spf13/pflag"

// ConfigOptions defines the standard interface for all component options.
// All component configuration types (PostgreSQL, Redis, etc.) must
// implement this interface to ensure consistent behavior across the system.
//
// This interface provides a unified contract for:
//   - Completing configuration with default values
//   - Validating configuration parameters
//   - Adding command-line flags
//
// Example implementation:
//
//	type RedisOptions struct {
//	    Host string
//	    Port int
//	}
//
//	func (o *RedisOptions) Complete() error {
//	    if o.Port == 0 {
//	        o.Port = 6379
//	    }
//	    return nil
//	}
//
//	func (o *RedisOptions) Validate() error {
//	    if o.Host == "" {
//	        return fmt.Errorf("host is required")
//	    }
//	    return nil
//	}
//
//	func (o *RedisOptions) AddFlags(fs *pflag.FlagSet, namePrefix string) {
//	    fs.StringVar(&o.Host, namePrefix+"redis.host", o.Host, "Redis host")
//	    fs.IntVar(&o.Port, namePrefix+"redis.port", o.Port, "Redis port")
//	}
type ConfigOptions interface {
	// Complete fills in any fields not set that are required to have valid data.
	// This method should set default values for optional fields and derive
	// computed fields from other configuration.
	Complete() error

	// Validate validates the options. It should check that required fields
	// are populated, values are within acceptable ranges, and field
	// combinations are logically consistent. Validate should be called
	// after Complete() so defaults are already in place.
	Validate() error

	// AddFlags adds flags for the options to the specified FlagSet.
	// The namePrefix parameter is prepended to flag names to avoid conflicts
	// when the same component appears more than once (e.g., "replica."
	// results in flags like "--replica.postgres.host").
	AddFlags(fs *pflag.FlagSet, namePrefix string)
}
