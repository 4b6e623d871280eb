package storage

import (
	base "github.com/kart-io/thoughtweave/pkg/storage"
)

// The core storage abstractions live in pkg/storage so they can be shared
// by packages that do not depend on the component layer. They are aliased
// here so component implementations (redis, postgres) and the storage
// Manager can refer to them without a second import path, and so a client
// built against either package satisfies the other.

// Client is the base interface that all storage clients must implement.
type Client = base.Client

// HealthChecker is a function type that performs health checks on storage systems.
type HealthChecker = base.HealthChecker

// HealthStatus represents the result of a health check operation.
type HealthStatus = base.HealthStatus

// Factory is an interface for creating storage clients.
type Factory = base.Factory
