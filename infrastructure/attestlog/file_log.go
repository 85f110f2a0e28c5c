// Package attestlog persists the append-only attestation event log as
// JSON lines. The trust evaluator folds over it; events are never
// rewritten.
package attestlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// FileLog stores one JSON-encoded AttestationEvent per line. Appends
// are serialized and flushed before returning.
type FileLog struct {
	path string
	mu   sync.Mutex
}

var _ ports.AttestationLog = (*FileLog)(nil)

// NewFileLog creates a log backed by the given path. The parent
// directory is created on first append.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Append adds an event to the end of the log.
func (l *FileLog) Append(event entities.AttestationEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create attestation log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open attestation log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode attestation event: %w", err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append attestation event: %w", err)
	}
	return f.Sync()
}

// Events returns the publisher's events in append order.
func (l *FileLog) Events(publisherID string) ([]entities.AttestationEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open attestation log: %w", err)
	}
	defer f.Close()

	var out []entities.AttestationEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var ev entities.AttestationEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("corrupt attestation log entry: %w", err)
		}
		if ev.PublisherID == publisherID {
			out = append(out, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attestation log: %w", err)
	}
	return out, nil
}

// MemoryLog is an in-process attestation log for tests and embedded
// use.
type MemoryLog struct {
	mu     sync.Mutex
	events []entities.AttestationEvent
}

var _ ports.AttestationLog = (*MemoryLog)(nil)

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append adds an event.
func (l *MemoryLog) Append(event entities.AttestationEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// Events returns the publisher's events in append order.
func (l *MemoryLog) Events(publisherID string) ([]entities.AttestationEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []entities.AttestationEvent
	for _, ev := range l.events {
		if ev.PublisherID == publisherID {
			out = append(out, ev)
		}
	}
	return out, nil
}
