package sysinfo

import (
	"testing"

	"github.com/palisade-irc/palisaded/internal/dispatch"
	"github.com/palisade-irc/palisaded/internal/line"
)

// recordingSource is an operator dispatch.Source that records the
// numerics replied to it.
type recordingSource struct{ codes []int }

func (s *recordingSource) IsOperator() bool   { return true }
func (s *recordingSource) IsRegistered() bool { return true }
func (s *recordingSource) Reply(numeric int, args ...string) {
	s.codes = append(s.codes, numeric)
}

func TestRegisterInstallsStatsCommand(t *testing.T) {
	m := New()
	d := dispatch.New()
	m.Register(d)

	found := false
	for _, name := range d.Names() {
		if name == "STATS" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Register should install the STATS command")
	}
}

func TestCmdStatsAlwaysEndsReport(t *testing.T) {
	m := New()
	src := &recordingSource{}

	// cmdStats must not panic even when /proc is unreadable (e.g. a
	// non-Linux test host), and always emits the end-of-report numeric.
	weight := m.cmdStats(src, &line.Message{Args: []string{"m"}})
	if weight != 0 {
		t.Fatalf("cmdStats should not add flood weight, got %d", weight)
	}
	if len(src.codes) == 0 || src.codes[len(src.codes)-1] != rplEndOfStats {
		t.Fatalf("cmdStats should end with numeric %d, got %v", rplEndOfStats, src.codes)
	}
}
