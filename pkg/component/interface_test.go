package component_test

import (
	"testing"

	"github.com/kart-io/thoughtweave/pkg/component"
	"github.com/kart-io/thoughtweave/pkg/component/postgres"
	"github.com/kart-io/thoughtweave/pkg/component/redis"
	"github.com/spf13/pflag"
)

// TestConfigOptionsInterface verifies that all component options
// implement the component.ConfigOptions interface.
func TestConfigOptionsInterface(t *testing.T) {
	tests := []struct {
		name   string
		option component.ConfigOptions
	}{
		{
			name:   "Redis Options",
			option: redis.NewOptions(),
		},
		{
			name:   "PostgreSQL Options",
			option: postgres.NewOptions(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Test Complete method
			if err := tt.option.Complete(); err != nil {
				t.Errorf("Complete() error = %v", err)
			}

			// Test Validate method
			if err := tt.option.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}

			// Test AddFlags method
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			tt.option.AddFlags(fs, "test.")

			// Verify that some flags were added by checking if FlagSet has flags
			flagCount := 0
			fs.VisitAll(func(_ *pflag.Flag) {
				flagCount++
			})
			if flagCount == 0 {
				t.Errorf("AddFlags() did not add any flags")
			}
		})
	}
}

// TestConfigOptionsComplete verifies that Complete() can be called
// multiple times without error.
func TestConfigOptionsComplete(t *testing.T) {
	opts := postgres.NewOptions()

	// First call
	if err := opts.Complete(); err != nil {
		t.Fatalf("First Complete() failed: %v", err)
	}

	// Second call should also succeed
	if err := opts.Complete(); err != nil {
		t.Fatalf("Second Complete() failed: %v", err)
	}
}

// TestConfigOptionsValidate verifies that Validate() can be called
// after Complete().
func TestConfigOptionsValidate(t *testing.T) {
	opts := redis.NewOptions()

	// Complete first
	if err := opts.Complete(); err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}

	// Then validate
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
}

// TestConfigOptionsAddFlags verifies that AddFlags() properly
// populates a FlagSet under a name prefix.
func TestConfigOptionsAddFlags(t *testing.T) {
	tests := []struct {
		name       string
		option     component.ConfigOptions
		prefix     string
		expectFlag string // One expected flag name to verify
	}{
		{
			name:       "Redis with prefix",
			option:     redis.NewOptions(),
			prefix:     "redis.",
			expectFlag: "redis.host",
		},
		{
			name:       "PostgreSQL with prefix",
			option:     postgres.NewOptions(),
			prefix:     "postgres.",
			expectFlag: "postgres.host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			tt.option.AddFlags(fs, tt.prefix)

			// Verify the expected flag exists
			flag := fs.Lookup(tt.expectFlag)
			if flag == nil {
				t.Errorf("Expected flag %q not found", tt.expectFlag)
			}
		})
	}
}
