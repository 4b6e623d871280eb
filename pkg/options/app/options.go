// Package app defines the CLI options contract shared by every thoughtweave
// binary: a set of named pflag.FlagSets grouped by concern (http, postgres,
// qdrant, ...) plus the Complete/Validate lifecycle pkg/infra/app.App drives
// each run through.
package app

import "github.com/spf13/pflag"

// NamedFlagSets groups flags by section name so each command can print
// "http flags", "postgres flags", etc. separately in --help output, and so
// pkg/infra/app.App can add every section's flags to the root command in a
// stable order.
type NamedFlagSets struct {
	// Order preserves the sequence sections were first requested in.
	Order    []string
	FlagSets map[string]*pflag.FlagSet
}

// FlagSet returns the named flag set, creating it (and recording its order)
// on first use.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.FlagSets == nil {
		nfs.FlagSets = map[string]*pflag.FlagSet{}
	}
	if _, ok := nfs.FlagSets[name]; !ok {
		nfs.FlagSets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.FlagSets[name]
}

// CliOptions is implemented by each binary's root options struct (e.g.
// cmd/thoughtweave/app/options.ServerOptions) and driven by
// pkg/infra/app.App: flags are registered, then on run Complete derives
// defaults from the environment and Validate rejects bad configuration
// before anything is constructed.
type CliOptions interface {
	Flags() NamedFlagSets
	Complete() error
	Validate() error
}
