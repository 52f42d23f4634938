// Package archive implements the durable checkpoint store and the
// per-item fetch driver. Every fetched component is persisted as a marker
// file so an interrupted run resumes without redoing completed work.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// Component names one sub-resource of an archived item.
type Component string

const (
	ComponentMain     Component = "main"
	ComponentComments Component = "comments"
	ComponentTimeline Component = "timeline"
	ComponentXrefs    Component = "xrefs"
)

// Terminal is an item-level terminal state. Once written it permanently
// short-circuits all component fetches for that item.
type Terminal int

const (
	// TerminalNone means no terminal marker exists.
	TerminalNone Terminal = iota

	// TerminalNotFound means the API reported the item does not exist.
	TerminalNotFound

	// TerminalCutoff means the item was created at or after the cutoff
	// date.
	TerminalCutoff
)

// FailureRecord is the persisted payload of a component failure marker.
type FailureRecord struct {
	Error     string    `json:"error"`
	Component string    `json:"component"`
	Timestamp time.Time `json:"timestamp"`
}

// Store maps (item number, component) to marker files in a single
// directory. Keys are zero-padded to six digits. A single process owns a
// store directory at a time; there is no cross-process locking.
type Store struct {
	dir string
}

// NewStore opens (creating if needed) the store directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Key returns the fixed-width textual key for an item number.
func Key(num int) string {
	return fmt.Sprintf("%06d", num)
}

// Terminal reports the item-level terminal state, if any.
func (s *Store) Terminal(num int) Terminal {
	if s.exists(Key(num) + ".404") {
		return TerminalNotFound
	}
	if s.exists(Key(num) + ".skip") {
		return TerminalCutoff
	}
	return TerminalNone
}

// WriteTerminal persists an item-level terminal marker.
func (s *Store) WriteTerminal(num int, kind Terminal) error {
	var name string
	switch kind {
	case TerminalNotFound:
		name = Key(num) + ".404"
	case TerminalCutoff:
		name = Key(num) + ".skip"
	default:
		return fmt.Errorf("invalid terminal kind %d", kind)
	}
	return atomic.WriteFile(filepath.Join(s.dir, name), bytes.NewReader(nil))
}

// HasComponent reports whether a success marker exists for (num, comp).
func (s *Store) HasComponent(num int, comp Component) bool {
	return s.exists(componentName(num, comp))
}

// WriteComponent persists a component success payload and clears any prior
// failure marker for the same pair. The success marker is the sole source
// of truth for completion.
func (s *Store) WriteComponent(num int, comp Component, payload []byte) error {
	path := filepath.Join(s.dir, componentName(num, comp))
	if err := atomic.WriteFile(path, bytes.NewReader(append(payload, '\n'))); err != nil {
		return fmt.Errorf("write %s marker: %w", comp, err)
	}

	failed := filepath.Join(s.dir, failureName(num, comp))
	if err := os.Remove(failed); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear %s failure marker: %w", comp, err)
	}
	return nil
}

// WriteFailure persists a component failure record. It does not block
// future attempts.
func (s *Store) WriteFailure(num int, comp Component, cause error) error {
	record := FailureRecord{
		Error:     cause.Error(),
		Component: string(comp),
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failure record: %w", err)
	}

	path := filepath.Join(s.dir, failureName(num, comp))
	if err := atomic.WriteFile(path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("write %s failure marker: %w", comp, err)
	}
	return nil
}

// ReadFailure loads a component failure record, if one exists.
func (s *Store) ReadFailure(num int, comp Component) (*FailureRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, failureName(num, comp)))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s failure marker: %w", comp, err)
	}

	var record FailureRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse %s failure marker: %w", comp, err)
	}
	return &record, nil
}

func componentName(num int, comp Component) string {
	return fmt.Sprintf("%s-%s.json", Key(num), comp)
}

func failureName(num int, comp Component) string {
	return fmt.Sprintf("%s-%s.failed", Key(num), comp)
}

func (s *Store) exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}
