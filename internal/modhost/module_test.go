package modhost

import (
	"errors"
	"testing"

	"github.com/palisade-irc/palisaded/internal/config"
)

// A reload whose Load callback fails must leave the module loaded again
// (its prior state restored), not unloaded, and must hand the restored
// load the same savedata its Unload produced.
func TestApplyPendingReloadsRollsBackOnFailure(t *testing.T) {
	h := NewHost(nil)

	var gotSaved SaveData
	failNext := true
	errFlaky := errors.New("flaky: dependency check failed")

	h.Register(&Module{
		Name:   "flaky",
		Header: Header{Major: 1, Minor: 0},
		Load: func(reload bool, saved SaveData, conf []*config.Entry, host *Host) error {
			gotSaved = saved
			if reload && failNext {
				failNext = false
				return errFlaky
			}
			return nil
		},
		Unload: func(reload bool) SaveData {
			return SaveData{{Name: "state", Data: []byte("carried")}}
		},
	})

	if err := h.Load("flaky"); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	if !h.Loaded("flaky") {
		t.Fatalf("expected flaky to be loaded")
	}

	if err := h.ReloadModule("flaky"); err != nil {
		t.Fatalf("ReloadModule: %v", err)
	}
	h.ApplyPendingReloads()

	if !h.Loaded("flaky") {
		t.Fatalf("a failed reload should roll back to the original loaded state, got unloaded")
	}
	data, ok := gotSaved.Get("state")
	if !ok || string(data) != "carried" {
		t.Fatalf("rollback load should receive the savedata from the failed attempt's Unload, got %v", gotSaved)
	}
}

// A module that was never loaded before a reload is requested (e.g.
// queued then unregistered/never loaded) should simply fail to load
// without the host panicking or marking it loaded.
func TestApplyPendingReloadsLeavesNeverLoadedModuleUnloaded(t *testing.T) {
	h := NewHost(nil)
	h.Register(&Module{
		Name:   "never",
		Header: Header{Major: 1, Minor: 0},
		Load: func(reload bool, saved SaveData, conf []*config.Entry, host *Host) error {
			return errors.New("always fails")
		},
	})

	if err := h.ReloadModule("never"); err != nil {
		t.Fatalf("ReloadModule: %v", err)
	}
	h.ApplyPendingReloads()

	if h.Loaded("never") {
		t.Fatalf("a module that was never loaded should not become loaded by a failed reload")
	}
}
