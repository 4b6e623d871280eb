// Package main is the entry point for the ThoughtWeave knowledge-engine
// service.
//
//	@title						ThoughtWeave API
//	@version					1.0
//	@description				Personal knowledge engine - retrieval-augmented capture, grounded answers, encrypted conversations, theme graphs
//
//	@host						localhost:8087
//	@BasePath					/
//
//	@securityDefinitions.apikey	APIKey
//	@in							header
//	@name						x-api-key
//	@description				Per-user API key validated by an upstream authorizer
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/thoughtweave/internal/thoughtweave"
)

func main() {
	thoughtweave.NewApp().Run()
}
