package driver

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"

	"livedoc/internal/domain"
)

// Props configures registry initialization.
type Props struct {
	// Environment is the environment this process runs in. Drivers declared
	// for another environment are skipped.
	Environment domain.Environment
	// TestMode relaxes environment gating for drivers named in Requested.
	TestMode bool
	// Requested lists drivers the caller explicitly wants. In test mode
	// these are initialized even when their declared environment does not
	// match.
	Requested []string
	// Settings holds per-driver configuration, keyed by driver name.
	Settings map[string]map[string]any
}

// Registry materializes and holds driver instances. Drivers are constructed
// once at Init and stay registered until Close; one driver failing to
// initialize never blocks the others.
type Registry struct {
	table   map[string]Registration
	drivers *xsync.MapOf[string, Driver]
	status  *xsync.MapOf[string, bool]
	log     *slog.Logger
}

// NewRegistry builds a registry over a static registration table. Duplicate
// names keep the first registration.
func NewRegistry(table []Registration, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	byName := make(map[string]Registration, len(table))
	for _, reg := range table {
		if _, exists := byName[reg.Name]; exists {
			log.Warn("duplicate driver registration ignored", "driver", reg.Name)
			continue
		}
		byName[reg.Name] = reg
	}
	return &Registry{
		table:   byName,
		drivers: xsync.NewMapOf[string, Driver](),
		status:  xsync.NewMapOf[string, bool](),
		log:     log,
	}
}

// Init attempts to construct every declared driver. Each failure is caught
// individually, logged, and recorded as false in the returned status map;
// the rest of the drivers still come up. Drivers gated out by environment
// are recorded as false without being constructed.
func (r *Registry) Init(ctx context.Context, props Props) map[string]bool {
	result := make(map[string]bool, len(r.table))
	for name, reg := range r.table {
		ok := r.initOne(ctx, reg, props)
		r.status.Store(name, ok)
		result[name] = ok
	}
	return result
}

func (r *Registry) initOne(ctx context.Context, reg Registration, props Props) (ok bool) {
	if !r.eligible(reg, props) {
		r.log.Debug("driver gated out by environment",
			"driver", reg.Name, "declared", reg.Environment, "running", props.Environment)
		return false
	}

	// A panicking factory counts as that driver failing, nothing more.
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("driver init panicked", "driver", reg.Name, "panic", rec)
			ok = false
		}
	}()

	drv, err := reg.New(ctx, props.Settings[reg.Name], r.log.With("driver", reg.Name))
	if err != nil {
		r.log.Error("driver init failed", "driver", reg.Name, "error", err)
		return false
	}

	r.drivers.Store(reg.Name, drv)
	r.log.Info("driver initialized", "driver", reg.Name, "environment", reg.Environment)
	return true
}

func (r *Registry) eligible(reg Registration, props Props) bool {
	if reg.Environment == props.Environment {
		return true
	}
	return props.TestMode && slices.Contains(props.Requested, reg.Name)
}

// Get resolves an initialized driver by name. Asking for a driver that is
// not registered (or failed to initialize) is a caller error.
func (r *Registry) Get(name string) (Driver, error) {
	drv, ok := r.drivers.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDriver, name)
	}
	return drv, nil
}

// Status reports whether the named driver initialized successfully.
func (r *Registry) Status(name string) bool {
	ok, _ := r.status.Load(name)
	return ok
}

// StatusMap returns the per-driver init status for every declared driver.
func (r *Registry) StatusMap() map[string]bool {
	out := make(map[string]bool, len(r.table))
	for name := range r.table {
		out[name], _ = r.status.Load(name)
	}
	return out
}

// Close invokes every initialized driver's close hook, tolerating and
// logging individual failures, then clears the registry.
func (r *Registry) Close(ctx context.Context) {
	r.drivers.Range(func(name string, drv Driver) bool {
		closer, hasClose := drv.(Closer)
		if !hasClose {
			return true
		}
		if err := closeDriver(closer); err != nil {
			r.log.Error("driver close failed", "driver", name, "error", err)
		}
		return true
	})
	r.drivers.Clear()
	r.status.Clear()
	r.log.Info("driver registry closed")
}

// closeDriver shields shutdown from a misbehaving close hook.
func closeDriver(c Closer) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("close panicked: %v", rec)
		}
	}()
	return c.Close()
}
