package output

import "vision-navigator/internal/domain/entity"

// AuditSink persists audit entries. Append must never fail the caller.
type AuditSink interface {
	Append(entry entity.AuditEntry)
	Entries() ([]entity.AuditEntry, error)
}
