package offdomain

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

var auditHeader = []string{"timestamp", "query", "reason"}

// AuditLog appends rejected queries to a CSV file. Write failures are logged and swallowed.
type AuditLog struct {
	path string
	log  *zap.Logger
	now  func() time.Time

	mu sync.Mutex
}

// NewAuditLog creates an audit log at path.
func NewAuditLog(path string, log *zap.Logger) *AuditLog {
	return &AuditLog{path: path, log: log, now: time.Now}
}

// Record appends one row. The header is written when the file is new or empty.
func (a *AuditLog) Record(query, reason string) {
	if a == nil || a.path == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.append(query, reason); err != nil {
		a.log.Warn("off-domain audit write failed", zap.String("path", a.path), zap.Error(err))
	}
}

func (a *AuditLog) append(query, reason string) error {
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(auditHeader); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	row := []string{a.now().UTC().Format(time.RFC3339), query, reason}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	return w.Error()
}
