// Package main is the entry point for the ThoughtWeave indexer worker.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/thoughtweave/internal/thoughtweave"
)

func main() {
	thoughtweave.NewIndexerApp().Run()
}
