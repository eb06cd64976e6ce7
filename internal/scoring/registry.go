package scoring

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the calibrations a server can evaluate with.
// Stored calibrations are treated as immutable: Put replaces, never edits.
type Registry struct {
	mu        sync.RWMutex
	items     map[string]*Calibration
	defaultID string
	reloads   *ReloadMonitor
}

// NewRegistry creates a registry preloaded with cals. defaultID is resolved
// when callers ask for the empty ID.
func NewRegistry(defaultID string, cals ...*Calibration) (*Registry, error) {
	r := &Registry{
		items:     make(map[string]*Calibration, len(cals)),
		defaultID: defaultID,
		reloads:   NewReloadMonitor(),
	}
	for _, cal := range cals {
		if err := r.Put(cal); err != nil {
			return nil, err
		}
	}
	if _, ok := r.items[defaultID]; !ok {
		return nil, fmt.Errorf("default calibration %q is not registered", defaultID)
	}
	return r, nil
}

// Put validates and stores cal, replacing any calibration with the same ID
func (r *Registry) Put(cal *Calibration) error {
	if cal == nil {
		return fmt.Errorf("nil calibration")
	}
	if err := cal.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[cal.ID] = cal
	return nil
}

// Get returns the calibration for id; the empty id selects the default
func (r *Registry) Get(id string) (*Calibration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id == "" {
		id = r.defaultID
	}
	cal, ok := r.items[id]
	return cal, ok
}

// DefaultID returns the ID used when a request names no calibration
func (r *Registry) DefaultID() string {
	return r.defaultID
}

// Reloads returns the monitor fed by WatchCalibrationFile
func (r *Registry) Reloads() *ReloadMonitor {
	return r.reloads
}

// List returns every calibration ordered by ID
func (r *Registry) List() []*Calibration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Calibration, 0, len(r.items))
	for _, cal := range r.items {
		out = append(out, cal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadRegistry registers the built-in calibrations plus, when path is set,
// the calibration file at path. A file calibration reusing a built-in ID
// replaces it.
func LoadRegistry(defaultID, path string) (*Registry, error) {
	cals := DefaultCalibrations()
	if path != "" {
		cal, err := LoadCalibrationFile(path)
		if err != nil {
			return nil, fmt.Errorf("load calibration %s: %w", path, err)
		}
		cals = append(cals, cal)
	}
	return NewRegistry(defaultID, cals...)
}
