// Package recordstore caches attestation records on disk, one JSON
// file per content hash.
package recordstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// hashPattern guards against path traversal through a crafted hash.
var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// FileStore stores records under dir/<content-hash>.json.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ ports.RecordStore = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Get returns the record for the content hash, or nil if absent.
func (s *FileStore) Get(contentHash string) (*entities.AttestationRecord, error) {
	path, err := s.recordPath(contentHash)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read attestation record: %w", err)
	}

	var record entities.AttestationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("corrupt attestation record %s: %w", contentHash, err)
	}
	return &record, nil
}

// Put stores a record under its subject's content hash.
func (s *FileStore) Put(record *entities.AttestationRecord) error {
	path, err := s.recordPath(record.Subject.ContentHash)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode attestation record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create record store directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write attestation record: %w", err)
	}
	return nil
}

func (s *FileStore) recordPath(contentHash string) (string, error) {
	if !hashPattern.MatchString(contentHash) {
		return "", fmt.Errorf("invalid content hash %q", contentHash)
	}
	return filepath.Join(s.dir, contentHash+".json"), nil
}

// MemoryStore is an in-process record cache for tests and embedded use.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*entities.AttestationRecord
}

var _ ports.RecordStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*entities.AttestationRecord)}
}

// Get returns the record for the content hash, or nil if absent.
func (s *MemoryStore) Get(contentHash string) (*entities.AttestationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[contentHash], nil
}

// Put stores a record under its subject's content hash.
func (s *MemoryStore) Put(record *entities.AttestationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Subject.ContentHash] = record
	return nil
}
