// Package stats keeps the daemon's operational counters and persists them
// to a JSON file so they survive restarts.
package stats

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"
)

// Snapshot is the serialized form of the statistics store.
type Snapshot struct {
	StartedAt       time.Time      `json:"started_at"`
	RequestsServed  int64          `json:"requests_served"`
	RotationTicks   int64          `json:"rotation_ticks"`
	AccountsUpdated int64          `json:"accounts_updated"`
	AccountsFailed  int64          `json:"accounts_failed"`
	PUIDRefreshes   int64          `json:"puid_refreshes"`
	SyncRuns        int64          `json:"sync_runs"`
	ByModel         map[string]int `json:"by_model,omitempty"`
}

// Store is a mutex-guarded counter set with JSON load/dump.
type Store struct {
	mu   sync.Mutex
	path string
	snap Snapshot
}

// Load reads a previous snapshot from path, starting fresh when the file
// does not exist yet.
func Load(path string) *Store {
	s := &Store{path: path, snap: Snapshot{StartedAt: time.Now(), ByModel: map[string]int{}}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s
	}
	if err != nil {
		log.Printf("⚠️ Failed to read statistics file: %v", err)
		return s
	}
	if err := json.Unmarshal(data, &s.snap); err != nil {
		log.Printf("⚠️ Statistics file is corrupt, starting fresh: %v", err)
		s.snap = Snapshot{StartedAt: time.Now(), ByModel: map[string]int{}}
		return s
	}
	if s.snap.ByModel == nil {
		s.snap.ByModel = map[string]int{}
	}
	s.snap.StartedAt = time.Now()
	return s
}

// Dump writes the current snapshot to the statistics file.
func (s *Store) Dump(printLog bool) {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.snap, "", "  ")
	s.mu.Unlock()
	if err != nil {
		log.Printf("⚠️ Failed to marshal statistics: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		log.Printf("⚠️ Failed to dump statistics: %v", err)
		return
	}
	if printLog {
		log.Printf("📊 Statistics dumped to %s", s.path)
	}
}

// Current returns a copy of the counters.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snap
	snap.ByModel = make(map[string]int, len(s.snap.ByModel))
	for k, v := range s.snap.ByModel {
		snap.ByModel[k] = v
	}
	return snap
}

// CountRequest records one served request.
func (s *Store) CountRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RequestsServed++
}

// CountRotationTick folds one tick outcome into the counters.
func (s *Store) CountRotationTick(updated, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RotationTicks++
	s.snap.AccountsUpdated += int64(updated)
	s.snap.AccountsFailed += int64(failed)
}

// CountPUIDRefreshes records successful puid rotations from one tick.
func (s *Store) CountPUIDRefreshes(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.PUIDRefreshes += int64(n)
}

// CountSyncRun records one conversation sync pass.
func (s *Store) CountSyncRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.SyncRuns++
}

// CountModelUse records one conversation observed for a model.
func (s *Store) CountModelUse(model string) {
	if model == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.ByModel[model]++
}
