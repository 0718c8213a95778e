// Package session persists per-agent runtime state as JSON files under
// <scope>/sessions, with advisory file locking for cross-process
// read-modify-write safety.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Agent statuses.
const (
	StatusIdle            = "idle"
	StatusWorking         = "working"
	StatusBlocked         = "blocked"
	StatusDone            = "done"
	StatusFailed          = "failed"
	StatusStopped         = "stopped"
	StatusAwaitingCouncil = "awaiting_council"
	StatusNeedsKingReview = "needs_king_review"
)

// AgentState is durable per-agent, per-scope runtime status. Optional
// fields are omitted when empty so old readers and new writers coexist;
// unknown fields in old files are ignored on load.
type AgentState struct {
	Name              string     `json:"name"`
	Status            string     `json:"status"`
	ResumeID          string     `json:"resume_id,omitempty"`
	PID               int        `json:"pid,omitempty"`
	Ticket            string     `json:"ticket,omitempty"`
	Thread            string     `json:"thread,omitempty"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	LastActivity      *time.Time `json:"last_activity,omitempty"`
	StartSHA          string     `json:"start_sha,omitempty"`
	ReviewBounceCount int        `json:"review_bounce_count,omitempty"`
}

func defaultState(agent string) *AgentState {
	return &AgentState{Name: agent, Status: StatusIdle}
}

// Store manages session files for one scope.
type Store struct {
	root string
}

func NewStore(scope string) *Store {
	return &Store{root: filepath.Join(scope, "sessions")}
}

func (s *Store) path(agent string) string {
	return filepath.Join(s.root, agent+".json")
}

func (s *Store) legacyPath(agent string) string {
	return filepath.Join(s.root, agent+".session")
}

// Get returns the agent's state, defaulting to idle when no file exists.
// A legacy bare-token file is migrated into the structured format on first
// read and then deleted; the migration is one-shot and idempotent.
func (s *Store) Get(agent string) (*AgentState, error) {
	if err := s.migrateLegacy(agent); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(agent))
	if err != nil {
		if os.IsNotExist(err) {
			return defaultState(agent), nil
		}
		return nil, err
	}
	st := defaultState(agent)
	if err := json.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("session %s: %w", agent, err)
	}
	if st.Status == "" {
		st.Status = StatusIdle
	}
	return st, nil
}

func (s *Store) migrateLegacy(agent string) error {
	data, err := os.ReadFile(s.legacyPath(agent))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	token := strings.TrimSpace(string(data))
	if token != "" {
		st := defaultState(agent)
		st.ResumeID = token
		if err := s.Set(agent, st); err != nil {
			return err
		}
	}
	return os.Remove(s.legacyPath(agent))
}

// Set serializes the state, omitting empty optional fields.
func (s *Store) Set(agent string, st *AgentState) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(agent), append(data, '\n'), 0o644)
}

// Remove deletes the agent's session file if present.
func (s *Store) Remove(agent string) error {
	err := os.Remove(s.path(agent))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var knownFields = map[string]bool{
	"status":              true,
	"resume_id":           true,
	"pid":                 true,
	"ticket":              true,
	"thread":              true,
	"started_at":          true,
	"last_activity":       true,
	"start_sha":           true,
	"review_bounce_count": true,
}

// Update performs a locked read-modify-write of the named fields. Unknown
// field names are rejected before the lock is taken.
func (s *Store) Update(agent string, fields map[string]any) (*AgentState, error) {
	for name := range fields {
		if !knownFields[name] {
			return nil, fmt.Errorf("unknown session field %q", name)
		}
	}
	var out *AgentState
	err := s.LockedUpdate(agent, func(st *AgentState) error {
		applyFields(st, fields)
		out = st
		return nil
	})
	return out, err
}

// LockedUpdate runs mutate on the agent's current state and writes the
// result back, all under an exclusive lock scoped to that one file. Safe
// for arbitrary concurrent writers across processes.
func (s *Store) LockedUpdate(agent string, mutate func(*AgentState) error) error {
	lock, err := acquireLock(s.path(agent))
	if err != nil {
		return err
	}
	defer lock.release()

	st, err := s.Get(agent)
	if err != nil {
		return err
	}
	if err := mutate(st); err != nil {
		return err
	}
	return s.Set(agent, st)
}

func applyFields(st *AgentState, fields map[string]any) {
	now := time.Now().UTC()
	for name, v := range fields {
		switch name {
		case "status":
			st.Status, _ = v.(string)
		case "resume_id":
			st.ResumeID, _ = v.(string)
		case "pid":
			st.PID = asInt(v)
		case "ticket":
			st.Ticket, _ = v.(string)
		case "thread":
			st.Thread, _ = v.(string)
		case "started_at":
			st.StartedAt = asTime(v)
		case "last_activity":
			st.LastActivity = asTime(v)
		case "start_sha":
			st.StartSHA, _ = v.(string)
		case "review_bounce_count":
			st.ReviewBounceCount = asInt(v)
		}
	}
	if _, ok := fields["last_activity"]; !ok {
		st.LastActivity = &now
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func asTime(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		u := t.UTC()
		return &u
	case *time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			u := parsed.UTC()
			return &u
		}
	}
	return nil
}

// ListActive returns every persisted agent whose status is not idle.
// Corrupt files are skipped rather than failing the listing.
func (s *Store) ListActive() ([]*AgentState, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*AgentState
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, name))
		if err != nil {
			continue
		}
		var st AgentState
		if err := json.Unmarshal(data, &st); err != nil {
			continue
		}
		if st.Name == "" {
			st.Name = strings.TrimSuffix(name, ".json")
		}
		if st.Status != "" && st.Status != StatusIdle {
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
