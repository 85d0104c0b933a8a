// Package services holds the console's process-wide dependencies. The
// EPG models themselves are never stored here: spec.md §5/§6 require
// the core to stay in-process and stateless between requests, so every
// handler builds its own Species and Model fresh from the request body
// (see gateway/router/sequences.go). The container only carries what
// genuinely is process-wide: configuration and the structured logger.
package services

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lamyj/sycomore/shared/types"
)

// ServiceContainer bundles the console's ambient dependencies.
type ServiceContainer struct {
	Config *types.Config
	Log    *logrus.Logger

	mu          sync.RWMutex
	initialized bool
}

// NewServiceContainer builds a container for the given configuration.
func NewServiceContainer(config *types.Config) (*ServiceContainer, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&logrus.JSONFormatter{})

	sc := &ServiceContainer{Config: config, Log: log}
	sc.mu.Lock()
	sc.initialized = true
	sc.mu.Unlock()
	return sc, nil
}

// IsInitialized reports whether the container is ready to serve requests.
func (sc *ServiceContainer) IsInitialized() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.initialized
}

// Shutdown marks the container as no longer serving. There is no
// persisted state or open connection to release: the console holds
// none (spec.md §6, "no persisted state").
func (sc *ServiceContainer) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.initialized = false
	return nil
}

// HealthCheck reports the container's liveness for GET /v1/health.
func (sc *ServiceContainer) HealthCheck() map[string]bool {
	return map[string]bool{"container": sc.IsInitialized()}
}
