// Package presets builds ready-to-use services for common setups.
package presets

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/tendant/simple-pattern/pkg/simplepattern"
	"github.com/tendant/simple-pattern/pkg/simplepattern/config"
	memoryrepo "github.com/tendant/simple-pattern/pkg/simplepattern/repo/memory"
	memorystorage "github.com/tendant/simple-pattern/pkg/simplepattern/storage/memory"
)

// NewDevelopment creates a service configured for local development.
//
// Features:
//   - In-memory repository and storage (instant startup, nothing to clean up)
//   - Value and component property types registered
//   - Lifecycle events logged through the given or default slog logger
//
// Example:
//
//	svc, err := presets.NewDevelopment()
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewDevelopment(opts ...DevelopmentOption) (simplepattern.Service, error) {
	cfg := &devConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	svc, err := simplepattern.New(
		simplepattern.WithRepository(memoryrepo.New()),
		simplepattern.WithBlobStore("memory", memorystorage.New()),
		simplepattern.WithFactory(config.NewFactory()),
		simplepattern.WithEventSink(simplepattern.NewLogEventSink(cfg.logger)),
		simplepattern.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	return svc, nil
}

// NewTesting creates a service configured for unit and integration tests.
//
// Features:
//   - In-memory repository (isolated per test)
//   - In-memory storage registered as "memory"
//   - No event logging (cleaner test output)
//
// Extra options are applied after the defaults, so a test can pass its own
// WithBlobStore("memory", store) to inspect exported objects.
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    svc := presets.NewTesting(t)
//	}
func NewTesting(t testing.TB, opts ...simplepattern.Option) simplepattern.Service {
	t.Helper()

	options := []simplepattern.Option{
		simplepattern.WithRepository(memoryrepo.New()),
		simplepattern.WithBlobStore("memory", memorystorage.New()),
		simplepattern.WithFactory(config.NewFactory()),
		simplepattern.WithEventSink(simplepattern.NewNoopEventSink()),
	}
	options = append(options, opts...)

	svc, err := simplepattern.New(options...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}

	return svc
}

// DevelopmentOption is a functional option for NewDevelopment
type DevelopmentOption func(*devConfig)

type devConfig struct {
	logger *slog.Logger
}

// WithDevLogger sets the logger used for service and event logging
func WithDevLogger(logger *slog.Logger) DevelopmentOption {
	return func(c *devConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}
