// Package builtin declares the registration table for the drivers that ship
// with livedoc. Embedders with custom backends append their own
// registrations before building the registry.
package builtin

import (
	"context"
	"fmt"
	"log/slog"

	"livedoc/internal/domain"
	"livedoc/internal/driver"
	"livedoc/internal/driver/file"
	"livedoc/internal/driver/memory"
	"livedoc/internal/driver/sqlite"
)

// Driver names as they appear in configuration.
const (
	NameMemory = "memory"
	NameFile   = "file"
	NameSQLite = "sqlite"
)

// Table returns the static registration table of built-in drivers.
func Table() []driver.Registration {
	return []driver.Registration{
		{
			Name:        NameMemory,
			Environment: domain.EnvironmentClient,
			New: func(_ context.Context, _ map[string]any, log *slog.Logger) (driver.Driver, error) {
				return memory.New(log), nil
			},
		},
		{
			Name:        NameFile,
			Environment: domain.EnvironmentServer,
			New: func(_ context.Context, settings map[string]any, log *slog.Logger) (driver.Driver, error) {
				root, err := stringSetting(settings, "root")
				if err != nil {
					return nil, err
				}
				return file.New(root, log)
			},
		},
		{
			Name:        NameSQLite,
			Environment: domain.EnvironmentServer,
			New: func(_ context.Context, settings map[string]any, log *slog.Logger) (driver.Driver, error) {
				path, err := stringSetting(settings, "path")
				if err != nil {
					return nil, err
				}
				return sqlite.New(path, log)
			},
		},
	}
}

func stringSetting(settings map[string]any, key string) (string, error) {
	raw, ok := settings[key]
	if !ok {
		return "", fmt.Errorf("missing required setting %q", key)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("setting %q must be a non-empty string, got %T", key, raw)
	}
	return s, nil
}
