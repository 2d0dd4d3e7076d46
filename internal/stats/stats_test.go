package stats

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDumpAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistics.json")

	s := Load(path)
	s.CountRequest()
	s.CountRotationTick(2, 1)
	s.CountModelUse("gpt-4")
	s.CountModelUse("gpt-4")
	s.Dump(false)

	reloaded := Load(path)
	snap := reloaded.Current()
	if snap.RequestsServed != 1 {
		t.Errorf("requests = %d", snap.RequestsServed)
	}
	if snap.RotationTicks != 1 || snap.AccountsUpdated != 2 || snap.AccountsFailed != 1 {
		t.Errorf("rotation counters wrong: %+v", snap)
	}
	if snap.ByModel["gpt-4"] != 2 {
		t.Errorf("by_model = %v", snap.ByModel)
	}
}

func TestLoadMissingFileStartsFresh(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "nope.json"))
	if snap := s.Current(); snap.RequestsServed != 0 {
		t.Errorf("expected fresh counters, got %+v", snap)
	}
}

func TestLoadCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistics.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := Load(path)
	s.CountRequest()
	if snap := s.Current(); snap.RequestsServed != 1 {
		t.Errorf("store unusable after corrupt load: %+v", snap)
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "statistics.json"))
	s.CountModelUse("gpt-4")
	snap := s.Current()
	snap.ByModel["gpt-4"] = 99
	if s.Current().ByModel["gpt-4"] != 1 {
		t.Error("Current must return an independent copy")
	}
}
