// Package decisionstore persists user permission decisions to a YAML
// file so extensions are not re-prompted across host restarts.
package decisionstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// fileStoreConfig holds configuration for the FileStore.
type fileStoreConfig struct {
	path     string      // Path to the decisions file
	dirPerm  os.FileMode // Permission for created directories
	filePerm os.FileMode // Permission for the decisions file
}

func defaultFileStoreConfig() fileStoreConfig {
	return fileStoreConfig{
		path:     filepath.Join(os.Getenv("HOME"), ".oxide", "decisions.yaml"),
		dirPerm:  0o755, // User config directory
		filePerm: 0o600, // User-only read/write (secure default)
	}
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*fileStoreConfig)

// WithPath sets the path to the decisions file.
func WithPath(path string) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.path = path
	}
}

// WithFilePermissions sets the file permissions for the decisions file.
// Default is 0o600 (user-only).
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the directory permissions for the decisions
// directory. Default is 0o755.
func WithDirPermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.dirPerm = perm
	}
}

// FileStore provides file-based persistence for permission decisions.
// Reads and writes are serialized; the file is rewritten whole on each
// Record.
type FileStore struct {
	config fileStoreConfig
	mu     sync.Mutex
}

var _ ports.DecisionStore = (*FileStore)(nil)

// NewFileStore creates a new FileStore with the given options.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &FileStore{config: cfg}
}

// decisionFile is the on-disk document shape.
type decisionFile struct {
	Decisions []ports.StoredDecision `yaml:"decisions"`
}

// Lookup returns the stored decision for the pair, or nil.
func (s *FileStore) Lookup(extensionID, capabilityKey string) (*ports.StoredDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Decisions {
		d := &doc.Decisions[i]
		if d.ExtensionID == extensionID && d.CapabilityKey == capabilityKey {
			out := *d
			return &out, nil
		}
	}
	return nil, nil
}

// Record persists a decision, replacing any previous one for the same
// pair.
func (s *FileStore) Record(decision ports.StoredDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range doc.Decisions {
		d := &doc.Decisions[i]
		if d.ExtensionID == decision.ExtensionID && d.CapabilityKey == decision.CapabilityKey {
			*d = decision
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Decisions = append(doc.Decisions, decision)
	}
	return s.save(doc)
}

// ConfigPath returns the path to the backing store.
func (s *FileStore) ConfigPath() string {
	return s.config.path
}

func (s *FileStore) load() (*decisionFile, error) {
	data, err := os.ReadFile(s.config.path)
	if os.IsNotExist(err) {
		return &decisionFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read decision store: %w", err)
	}

	var doc decisionFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse decision store: %w", err)
	}
	return &doc, nil
}

func (s *FileStore) save(doc *decisionFile) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal decisions: %w", err)
	}

	dir := filepath.Dir(s.config.path)
	if err := os.MkdirAll(dir, s.config.dirPerm); err != nil {
		return fmt.Errorf("failed to create decision store directory: %w", err)
	}

	if err := os.WriteFile(s.config.path, data, s.config.filePerm); err != nil {
		return fmt.Errorf("failed to write decision store: %w", err)
	}
	return nil
}
