// Package poller incrementally observes a thread directory, turning new
// message files and growing stream scratch files into ordered events for
// a live view.
package poller

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jbohnslav/kingdom-sub000/internal/backend"
	"github.com/jbohnslav/kingdom-sub000/internal/thread"
)

// Event kinds, in the order a single poll can produce them.
type Kind string

const (
	NewMessage     Kind = "new_message"
	StreamStarted  Kind = "stream_started"
	StreamDelta    Kind = "stream_delta"
	StreamFinished Kind = "stream_finished"
)

// Event is one observed change. For StreamDelta, Text and Thinking carry
// the full accumulated strings, not the increment, so rendering is
// idempotent.
type Event struct {
	Kind     Kind
	Member   string
	Message  *thread.Message
	Text     string
	Thinking string
}

var (
	messagePattern = regexp.MustCompile(`^(\d{4})-.*\.md$`)
	streamPattern  = regexp.MustCompile(`^\.stream-(.+)\.jsonl$`)
)

type memberState struct {
	offset    int64
	pending   string // trailing partial line from the last read
	text      strings.Builder
	thinking  strings.Builder
	active    bool
	finalized bool
}

// Poller tracks incremental state for one thread directory. Not safe for
// concurrent use; it is driven from a single timer loop.
type Poller struct {
	dir          string
	backends     map[string]string // member name -> backend name
	lastSequence int
	members      map[string]*memberState
}

// New creates a poller over a thread directory. backends maps each member
// name to its backend so scratch lines can be decoded; scratch files of
// unknown members are ignored.
func New(dir string, backends map[string]string) *Poller {
	return &Poller{dir: dir, backends: backends, members: map[string]*memberState{}}
}

// LastSequence is the highest message sequence the poller has surfaced.
func (p *Poller) LastSequence() int { return p.lastSequence }

func (p *Poller) state(member string) *memberState {
	st, ok := p.members[member]
	if !ok {
		st = &memberState{}
		p.members[member] = st
	}
	return st
}

// Poll scans once and returns all events in order: pending finalized
// messages first, then stream activity. It never blocks on a child
// process; all reads are bounded local file I/O.
func (p *Poller) Poll() ([]Event, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	events := p.scanMessages(entries)
	events = append(events, p.scanStreams(entries)...)
	return events, nil
}

func (p *Poller) scanMessages(entries []os.DirEntry) []Event {
	type pending struct {
		seq  int
		name string
	}
	var fresh []pending
	for _, e := range entries {
		m := messagePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil || seq <= p.lastSequence {
			continue
		}
		fresh = append(fresh, pending{seq: seq, name: e.Name()})
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].seq < fresh[j].seq })

	var events []Event
	for _, f := range fresh {
		msg, err := thread.ReadMessageFile(filepath.Join(p.dir, f.name), f.seq)
		if err != nil {
			// Corrupt or mid-write; retry on a later poll.
			continue
		}
		events = append(events, Event{Kind: NewMessage, Member: msg.From, Message: msg})
		p.lastSequence = f.seq

		if msg.To == thread.ToAll {
			// A broadcast opens a new exchange; members may stream again.
			for _, st := range p.members {
				st.finalized = false
			}
		}
		st := p.state(msg.From)
		if st.active {
			events = append(events, Event{Kind: StreamFinished, Member: msg.From})
		}
		// The finalized message is authoritative; partial text is dropped
		// and later scratch growth is ignored until a new exchange.
		*st = memberState{finalized: true}
	}
	return events
}

func (p *Poller) scanStreams(entries []os.DirEntry) []Event {
	var events []Event
	for _, e := range entries {
		m := streamPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		name := m[1]
		backendName, known := p.backends[name]
		if !known {
			continue
		}
		st := p.state(name)
		if st.finalized {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		size := info.Size()

		if size < st.offset {
			// A shrinking file means the attempt restarted; earlier bytes
			// were never valid.
			st.offset = 0
			st.pending = ""
			st.text.Reset()
			st.thinking.Reset()
		}
		if !st.active {
			st.active = true
			events = append(events, Event{Kind: StreamStarted, Member: name})
		}
		if size <= st.offset {
			continue
		}

		chunk, err := readRange(filepath.Join(p.dir, e.Name()), st.offset, size)
		if err != nil {
			continue
		}
		st.offset = size
		if p.decodeChunk(st, backendName, chunk) {
			events = append(events, Event{
				Kind:     StreamDelta,
				Member:   name,
				Text:     st.text.String(),
				Thinking: st.thinking.String(),
			})
		}
	}
	return events
}

// decodeChunk feeds complete lines from the new byte range through the
// backend decoder, holding back a trailing partial line for the next
// poll. Reports whether any displayable text accumulated.
func (p *Poller) decodeChunk(st *memberState, backendName, chunk string) bool {
	buf := st.pending + chunk
	lines := strings.Split(buf, "\n")
	st.pending = lines[len(lines)-1]
	grew := false
	for _, line := range lines[:len(lines)-1] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		delta, ok := backend.DecodeStreamLine(backendName, line)
		if !ok {
			continue
		}
		if delta.Text != "" {
			st.text.WriteString(delta.Text)
			grew = true
		}
		if delta.Thinking != "" {
			st.thinking.WriteString(delta.Thinking)
			grew = true
		}
	}
	return grew
}

func readRange(path string, from, to int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Seek(from, io.SeekStart); err != nil {
		return "", err
	}
	buf := make([]byte, to-from)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return string(buf[:n]), nil
}
