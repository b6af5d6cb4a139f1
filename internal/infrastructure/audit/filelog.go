package audit

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"

	"vision-navigator/internal/application/port/output"
	"vision-navigator/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ output.AuditSink = (*FileLog)(nil)

// FileLog keeps the audit trail as one JSON array on disk. Every Append
// rewrites the whole file through a temp file and rename. Writers in other
// processes targeting the same path must be serialized externally.
type FileLog struct {
	mu      sync.Mutex
	path    string
	enabled bool
	logger  output.LoggerPort
}

func NewFileLog(path string, enabled bool, logger output.LoggerPort) (*FileLog, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand audit path: %w", err)
	}
	if enabled && expanded == "" {
		return nil, errors.New("audit path is empty")
	}
	return &FileLog{path: expanded, enabled: enabled, logger: logger}, nil
}

func (l *FileLog) Path() string  { return l.path }
func (l *FileLog) Enabled() bool { return l.enabled }

// Append adds entry to the log. Failures are logged, never returned.
func (l *FileLog) Append(entry entity.AuditEntry) {
	if !l.enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.read()
	if err != nil {
		l.logger.Error("Audit log unreadable, entry dropped",
			"path", l.path,
			"request_id", entry.RequestID,
			"iteration", entry.Iteration,
			"error", err,
		)
		return
	}

	entries = append(entries, entry)
	if err := l.write(entries); err != nil {
		l.logger.Error("Failed to persist audit log",
			"path", l.path,
			"request_id", entry.RequestID,
			"iteration", entry.Iteration,
			"error", err,
		)
		return
	}

	l.logger.Debug("Audit entry recorded",
		"request_id", entry.RequestID,
		"iteration", entry.Iteration,
		"status", string(entry.Status),
	)
}

// Entries returns every persisted entry, oldest first.
func (l *FileLog) Entries() ([]entity.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *FileLog) read() ([]entity.AuditEntry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var entries []entity.AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode audit log: %w", err)
	}
	return entries, nil
}

func (l *FileLog) write(entries []entity.AuditEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode audit log: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".audit-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace audit log: %w", err)
	}
	return nil
}
