package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const MaxHistoryItems = 50

type SourceKind string

const (
	SourceKindFolder SourceKind = "folder"
	SourceKindURL    SourceKind = "url"
)

// Source is what the ledger keys entries by. Fallback URLs are carried but are not identity.
type Source struct {
	Kind                SourceKind `json:"kind"`
	Path                string     `json:"path,omitempty"`
	SkeletonURL         string     `json:"skeleton_url,omitempty"`
	AtlasURL            string     `json:"atlas_url,omitempty"`
	SkeletonURLFallback string     `json:"skeleton_url_fallback,omitempty"`
	AtlasURLFallback    string     `json:"atlas_url_fallback,omitempty"`
}

func (s Source) Same(other Source) bool {
	if s.Kind != other.Kind {
		return false
	}
	switch s.Kind {
	case SourceKindFolder:
		return s.Path == other.Path
	case SourceKindURL:
		return s.SkeletonURL == other.SkeletonURL && s.AtlasURL == other.AtlasURL
	default:
		return false
	}
}

func (s Source) Validate() error {
	switch s.Kind {
	case SourceKindFolder:
		if strings.TrimSpace(s.Path) == "" {
			return fmt.Errorf("folder path is required")
		}
	case SourceKindURL:
		if strings.TrimSpace(s.SkeletonURL) == "" || strings.TrimSpace(s.AtlasURL) == "" {
			return fmt.Errorf("skeleton and atlas urls are required")
		}
	default:
		return fmt.Errorf("unknown source kind %q", string(s.Kind))
	}
	return nil
}

type Entry struct {
	ID          int64     `json:"id"`
	Source      Source    `json:"source"`
	CharacterID string    `json:"character_id,omitempty"`
	ModType     string    `json:"mod_type,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// State is the persisted form of a ledger.
type State struct {
	Entries []Entry `json:"entries"`
	LastID  int64   `json:"last_id"`
}

// Ledger is a bounded, deduplicated history of opened sources. Entries are kept in insertion order.
type Ledger struct {
	entries []Entry
	lastID  int64
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Restore rebuilds a ledger from persisted state, dropping duplicates and anything over capacity.
func Restore(state State) *Ledger {
	l := &Ledger{lastID: state.LastID}
	for _, e := range state.Entries {
		if l.indexOf(e.Source) >= 0 {
			continue
		}
		if e.ID > l.lastID {
			l.lastID = e.ID
		}
		l.entries = append(l.entries, e)
	}
	if len(l.entries) > MaxHistoryItems {
		l.entries = l.sorted()[:MaxHistoryItems]
	}
	return l
}

// Upsert refreshes the timestamp of an existing entry for src, or inserts a new one,
// evicting the oldest entries first when the ledger is full.
func (l *Ledger) Upsert(src Source, characterID, modType string, now time.Time) Entry {
	if i := l.indexOf(src); i >= 0 {
		l.entries[i].Timestamp = now
		return l.entries[i]
	}
	if len(l.entries) >= MaxHistoryItems {
		l.entries = l.sorted()[:MaxHistoryItems-1]
	}
	l.lastID++
	entry := Entry{ID: l.lastID, Source: src, CharacterID: characterID, ModType: modType, Timestamp: now}
	l.entries = append(l.entries, entry)
	return entry
}

// Remove deletes the entry with id. Unknown ids are ignored.
func (l *Ledger) Remove(id int64) bool {
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the ledger and restarts ids.
func (l *Ledger) Clear() {
	l.entries = nil
	l.lastID = 0
}

// List returns entries newest first; equal timestamps keep insertion order.
func (l *Ledger) List() []Entry {
	return l.sorted()
}

func (l *Ledger) Len() int {
	return len(l.entries)
}

func (l *Ledger) State() State {
	return State{Entries: append([]Entry(nil), l.entries...), LastID: l.lastID}
}

func (l *Ledger) sorted() []Entry {
	out := append([]Entry(nil), l.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (l *Ledger) indexOf(src Source) int {
	for i, e := range l.entries {
		if e.Source.Same(src) {
			return i
		}
	}
	return -1
}
