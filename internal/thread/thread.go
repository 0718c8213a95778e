// Package thread manages append-only, sequentially numbered message
// threads on disk. Each thread is a directory under <scope>/threads
// holding thread.json metadata plus one NNNN-<sender>.md file per turn.
package thread

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jbohnslav/kingdom-sub000/internal/frontmatter"
)

const (
	metaFile = "thread.json"

	// Conversation patterns.
	PatternCouncil = "council"
	PatternWork    = "work"
	PatternDirect  = "direct"

	// Broadcast recipient marker.
	ToAll = "all"
)

var (
	ErrNotFound = errors.New("thread not found")
	ErrExists   = errors.New("thread already exists")

	messagePattern = regexp.MustCompile(`^(\d{4})-.*\.md$`)
)

// Meta is a thread's identity and fixed membership.
type Meta struct {
	ID        string    `json:"id"`
	Members   []string  `json:"members"`
	Pattern   string    `json:"pattern"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one immutable turn in a thread.
type Message struct {
	Sequence  int
	From      string
	To        string
	Body      string
	Timestamp time.Time
	Refs      []string
}

// Store reads and writes threads under a scope directory.
type Store struct {
	root string
}

func NewStore(scope string) *Store {
	return &Store{root: filepath.Join(scope, "threads")}
}

func (s *Store) dir(id string) string { return filepath.Join(s.root, id) }

// Create registers a new thread. The id is normalized to a slug; creation
// fails if a thread with the normalized id already exists.
func (s *Store) Create(id string, members []string, pattern string) (*Meta, error) {
	slug := Slug(id)
	if slug == "" {
		return nil, fmt.Errorf("thread id %q normalizes to empty", id)
	}
	dir := s.dir(slug)
	if _, err := os.Stat(filepath.Join(dir, metaFile)); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, slug)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	meta := &Meta{ID: slug, Members: members, Pattern: pattern, CreatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), append(data, '\n'), 0o644); err != nil {
		return nil, err
	}
	return meta, nil
}

// Get loads a thread's metadata.
func (s *Store) Get(id string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(Slug(id)), metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, Slug(id))
		}
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("thread %s: %w", Slug(id), err)
	}
	return &meta, nil
}

// List returns all threads with valid metadata, oldest first. Directories
// without parseable metadata are skipped (partial writes are not fatal).
func (s *Store) List() ([]*Meta, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*Meta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.Get(e.Name())
		if err != nil {
			continue
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// NextSequence scans message filenames for the numeric prefix and returns
// max+1 (1 for an empty thread). Not safe for concurrent writers to the
// same thread; the orchestrator appends sequentially.
func (s *Store) NextSequence(id string) (int, error) {
	entries, err := os.ReadDir(s.dir(Slug(id)))
	if err != nil {
		return 0, err
	}
	max := 0
	for _, e := range entries {
		m := messagePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1, nil
}

// Append writes the next message in the thread and returns it.
func (s *Store) Append(id, from, to, body string, refs []string) (*Message, error) {
	slug := Slug(id)
	if _, err := s.Get(slug); err != nil {
		return nil, err
	}
	seq, err := s.NextSequence(slug)
	if err != nil {
		return nil, err
	}
	msg := &Message{
		Sequence:  seq,
		From:      from,
		To:        to,
		Body:      body,
		Timestamp: time.Now().UTC(),
		Refs:      refs,
	}
	name := fmt.Sprintf("%04d-%s.md", seq, Slug(from))
	doc := &frontmatter.Doc{
		Fields: map[string]any{
			"from":      msg.From,
			"to":        msg.To,
			"timestamp": msg.Timestamp.Format("2006-01-02T15:04:05Z"),
			"refs":      msg.Refs,
		},
		Body: body,
	}
	text := frontmatter.Serialize(doc, "from", "to", "timestamp", "refs")
	if err := os.WriteFile(filepath.Join(s.dir(slug), name), []byte(text), 0o644); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages reads every message file in the thread, sorted by sequence.
// Files that fail to parse are skipped.
func (s *Store) ListMessages(id string) ([]*Message, error) {
	slug := Slug(id)
	if _, err := s.Get(slug); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir(slug))
	if err != nil {
		return nil, err
	}
	var out []*Message
	for _, e := range entries {
		m := messagePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		msg, err := readMessage(filepath.Join(s.dir(slug), e.Name()), seq)
		if err != nil {
			continue
		}
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

// ReadMessageFile parses a single message file. seq is taken from the
// filename by callers that have already matched the naming pattern.
func ReadMessageFile(path string, seq int) (*Message, error) {
	return readMessage(path, seq)
}

func readMessage(path string, seq int) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := frontmatter.Parse(string(data))
	if err != nil {
		return nil, err
	}
	msg := &Message{
		Sequence: seq,
		From:     doc.String("from"),
		To:       doc.String("to"),
		Body:     doc.Body,
		Refs:     doc.List("refs"),
	}
	if ts := doc.String("timestamp"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			msg.Timestamp = t
		}
	}
	return msg, nil
}

// Dir exposes the on-disk directory for a thread, used by the poller to
// watch for new messages and stream scratch files.
func (s *Store) Dir(id string) string { return s.dir(Slug(id)) }

// StreamPath is the live scratch file for a member's in-flight response.
func (s *Store) StreamPath(id, member string) string {
	return filepath.Join(s.Dir(id), ".stream-"+member+".jsonl")
}

// RemoveStream deletes a member's scratch file once the finalized message
// is durably written. Missing files are fine.
func (s *Store) RemoveStream(id, member string) {
	_ = os.Remove(s.StreamPath(id, member))
}
