// Package modhost implements the hot-swappable module system of spec
// §4.D: dependency resolution with an export flag, a global symbol
// table, per-module savedata carried across reload, and reverse
// dependencies for cascading reload. Grounded on
// original_source/source/module.c and include/ithildin/module.h; Go
// replaces dlopen/dlsym with a compile-time registry of Module values
// (Design Notes: "Replace runtime symbol resolution with a compile-time
// trait/interface boundary").
package modhost

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/palisade-irc/palisaded/internal/config"
	"github.com/palisade-irc/palisaded/internal/event"
	log "github.com/palisade-irc/palisaded/pkg/ircdlog"
)

// Header carries the module's ABI version triple, used by the version
// policy in Load.
type Header struct {
	Major, Minor, Patch byte
	Version             string
}

// SaveRecord is one opaque (name, bytes) pair a module hands from its
// Unload call to its next Load call across a reload.
type SaveRecord struct {
	Name string
	Data []byte
}

// SaveData is the ordered list of records a module's Unload produces and
// its Load consumes. The host does not interpret the bytes (spec §9 open
// question: "the savedata mechanism is opaque bytes").
type SaveData []SaveRecord

func (s SaveData) Get(name string) ([]byte, bool) {
	for _, r := range s {
		if r.Name == name {
			return r.Data, true
		}
	}
	return nil, false
}

// LoadFunc is called with reload=true when this is a reload rather than a
// first load, the savedata carried from the prior Unload (nil on first
// load), the live config tree, and the Host so the module can register
// commands/modes/hooks. An error aborts just this module's load.
type LoadFunc func(reload bool, saved SaveData, conf []*config.Entry, h *Host) error

// UnloadFunc returns the savedata to hand to the next Load.
type UnloadFunc func(reload bool) SaveData

// Module is one pluggable unit. Name must be unique within a Host.
type Module struct {
	Name    string
	Header  Header
	Deps    []string // names of modules that must be loaded first, exported
	Load    LoadFunc
	Unload  UnloadFunc

	loaded      bool
	reloading   bool
	savedata    SaveData
	reverseDeps map[string]bool
}

func (m *Module) Loaded() bool { return m.loaded }

// version policy thresholds, mirroring load_module's MAJOR_VER/MINOR_VER
// comparison in module.c.
const (
	hostMajor byte = 1
	hostMinor byte = 0
)

func checkVersion(name string, h Header) error {
	if h.Major > hostMajor {
		return fmt.Errorf("module %s targets a newer ABI (%d.%d.%d); refusing to load", name, h.Major, h.Minor, h.Patch)
	}
	if h.Major < hostMajor {
		log.Warn("module %s targets an older major ABI (%d.%d.%d); may not work", name, h.Major, h.Minor, h.Patch)
		return nil
	}
	diff := int(h.Minor) - int(hostMinor)
	if diff >= 2 {
		return fmt.Errorf("module %s targets a newer ABI (%d.%d.%d); refusing to load", name, h.Major, h.Minor, h.Patch)
	}
	if diff <= -2 {
		log.Warn("module %s targets an older ABI (%d.%d.%d); may not work", name, h.Major, h.Minor, h.Patch)
	}
	return nil
}

// Symbol is a named, module-owned value reachable from any other module
// after export, mirroring export_symbol/import_symbol.
type Symbol struct {
	Name   string
	Value  interface{}
	Owner  string // owning module name
}

// Host is the module registry: load/unload/reload, the symbol table, and
// the deferred-reload queue (spec: "reload_module marks the module...
// the host then unloads in reverse dependency order... and reloads in
// dependency order").
type Host struct {
	modules map[string]*Module
	order   []string // registration order, for deterministic iteration
	symbols map[string]*Symbol

	pendingReload map[string]bool

	LoadEvent   *event.Event // fires with the module name before Load runs
	UnloadEvent *event.Event // fires with the module name before Unload runs

	conf []*config.Entry
}

func NewHost(conf []*config.Entry) *Host {
	return &Host{
		modules:       map[string]*Module{},
		symbols:       map[string]*Symbol{},
		pendingReload: map[string]bool{},
		LoadEvent:     event.New("load_module", event.FlagNoReturn),
		UnloadEvent:   event.New("unload_module", event.FlagNoReturn),
		conf:          conf,
	}
}

// Register adds a module definition without loading it, mirroring
// create_module with MODULE_FL_CREATE.
func (h *Host) Register(m *Module) {
	m.reverseDeps = map[string]bool{}
	h.modules[m.Name] = m
	h.order = append(h.order, m.Name)
}

func (h *Host) Find(name string) (*Module, bool) {
	m, ok := h.modules[name]
	return m, ok
}

func (h *Host) Loaded(name string) bool {
	m, ok := h.modules[name]
	return ok && m.loaded
}

// Load loads name and, first, every module it depends on, per spec §4.D.
// Dependencies are loaded like any other module; exported symbols are
// always globally resolvable, so nothing extra is marked on them.
func (h *Host) Load(name string) error {
	return h.load(name, map[string]bool{})
}

func (h *Host) load(name string, inProgress map[string]bool) error {
	m, ok := h.modules[name]
	if !ok {
		return fmt.Errorf("module %s is not registered", name)
	}
	if m.loaded && !m.reloading {
		return nil
	}
	if inProgress[name] {
		// Circular dependency: mark loaded before Load returns so lazy
		// symbol resolution can still succeed later, per spec §4.D.
		return nil
	}
	inProgress[name] = true

	for _, dep := range m.Deps {
		dm, ok := h.modules[dep]
		if !ok {
			return fmt.Errorf("module %s depends on unregistered module %s", name, dep)
		}
		dm.reverseDeps[name] = true
		if !dm.loaded {
			if err := h.load(dep, inProgress); err != nil {
				return fmt.Errorf("loading dependency %s of %s: %w", dep, name, err)
			}
		}
	}

	if err := checkVersion(name, m.Header); err != nil {
		return err
	}

	reload := m.reloading
	saved := m.savedata
	m.savedata = nil

	// Mark loaded before calling Load so that a module which itself
	// triggers other loads (or is part of a cycle) sees a consistent
	// registry, mirroring "go ahead and say it's loaded now".
	wasLoaded := m.loaded
	m.loaded = true

	h.LoadEvent.Fire(name)

	if m.Load != nil {
		if err := m.Load(reload, saved, h.conf, h); err != nil {
			m.loaded = wasLoaded
			return fmt.Errorf("loading module %s: %w", name, err)
		}
	}

	m.reloading = false
	return nil
}

// Unload unloads name only, without cascading to dependents. Callers
// that need the cascade use ReloadModule.
func (h *Host) Unload(name string) error {
	m, ok := h.modules[name]
	if !ok {
		return fmt.Errorf("module %s is not registered", name)
	}
	if !m.loaded {
		return nil
	}

	h.UnloadEvent.Fire(name)

	if m.Unload != nil {
		m.savedata = m.Unload(m.reloading)
	}
	m.loaded = false

	// Drop symbols this module owned.
	for k, s := range h.symbols {
		if s.Owner == name {
			delete(h.symbols, k)
		}
	}

	return nil
}

// ReloadModule marks a module (and, when applied, every module that
// depends on it) for reload at the next tick, matching reload_module's deferred
// behavior (spec §4.A step 6: "apply pending module reloads").
func (h *Host) ReloadModule(name string) error {
	if _, ok := h.modules[name]; !ok {
		return fmt.Errorf("module %s is not registered", name)
	}
	h.pendingReload[name] = true
	return nil
}

// ApplyPendingReloads performs every queued reload: modules are unloaded
// in reverse dependency order (dependents first) and reloaded in
// dependency order (dependencies first), matching spec §4.D.
func (h *Host) ApplyPendingReloads() {
	if len(h.pendingReload) == 0 {
		return
	}

	names := make([]string, 0, len(h.pendingReload))
	for n := range h.pendingReload {
		names = append(names, n)
	}
	h.pendingReload = map[string]bool{}
	sort.Strings(names)

	batchID := uuid.New().String()
	log.Info("reload batch %s: %d module(s) queued (%s)", batchID, len(names), strings.Join(names, ", "))

	// Expand to the full reverse-dependency closure so dependents reload
	// along with what they depend on.
	closure := map[string]bool{}
	var expand func(string)
	expand = func(n string) {
		if closure[n] {
			return
		}
		closure[n] = true
		if m, ok := h.modules[n]; ok {
			for dep := range m.reverseDeps {
				expand(dep)
			}
		}
	}
	for _, n := range names {
		expand(n)
	}

	order := h.topoOrder(closure)

	// wasLoaded and savedBackup capture each module's pre-reload state so
	// a failed reload can restore it instead of leaving the module
	// unloaded (spec §7 error-kind 6: "restore the original loaded
	// module").
	wasLoaded := map[string]bool{}
	savedBackup := map[string]SaveData{}
	for _, n := range order {
		if m, ok := h.modules[n]; ok {
			wasLoaded[n] = m.loaded
		}
	}

	// Unload in reverse dependency order (dependents before what they
	// depend on).
	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		m, ok := h.modules[n]
		if !ok || !m.loaded {
			continue
		}
		m.reloading = true
		if err := h.Unload(n); err != nil {
			log.Warn("reload batch %s: unloading %s: %v", batchID, n, err)
			continue
		}
		savedBackup[n] = m.savedata
	}

	// Reload in dependency order.
	for _, n := range order {
		m, ok := h.modules[n]
		if !ok {
			continue
		}
		if err := h.load(n, map[string]bool{}); err != nil {
			log.Warn("reload batch %s: loading %s failed: %v", batchID, n, err)
			if wasLoaded[n] {
				m.savedata = savedBackup[n]
				m.reloading = true
				if rerr := h.load(n, map[string]bool{}); rerr != nil {
					log.Error("reload batch %s: rolling back %s to its prior loaded state also failed: %v", batchID, n, rerr)
				}
			}
		}
		m.reloading = false
	}
}

// topoOrder returns the subset names in dependency order: every module
// comes after the modules it depends on; otherwise registration order.
func (h *Host) topoOrder(subset map[string]bool) []string {
	var out []string
	seen := map[string]bool{}
	var visit func(string)
	visit = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		if m, ok := h.modules[n]; ok {
			for _, d := range m.Deps {
				visit(d)
			}
		}
		if subset[n] {
			out = append(out, n)
		}
	}
	for _, n := range h.order {
		visit(n)
	}
	return out
}

// Export publishes a value under name, owned by module, mirroring
// export_symbol. A subsequent Load of a dependent module can Import it.
func (h *Host) Export(name, module string, value interface{}) {
	h.symbols[name] = &Symbol{Name: name, Value: value, Owner: module}
}

// Import resolves a previously exported symbol by name.
func (h *Host) Import(name string) (interface{}, bool) {
	s, ok := h.symbols[name]
	if !ok {
		return nil, false
	}
	return s.Value, true
}

// Names returns every registered module name in registration order.
func (h *Host) Names() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}
