package hipaa

import (
	"context"
	"sort"
	"sync"

	"github.com/ehr/gateway/internal/platform/middleware"
)

// MemoryAccessLog keeps the access log in process. Used when no database is
// configured; entries beyond capacity are dropped oldest first.
type MemoryAccessLog struct {
	mu      sync.RWMutex
	hasher  Hasher
	max     int
	records []AccessRecord
	next    int // slot overwritten by the next insert once full
}

// NewMemoryAccessLog creates a MemoryAccessLog holding at most capacity records.
func NewMemoryAccessLog(hasher Hasher, capacity int) *MemoryAccessLog {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryAccessLog{hasher: hasher, max: capacity}
}

// RecordAccess implements middleware.AuditRecorder.
func (l *MemoryAccessLog) RecordAccess(_ context.Context, entry middleware.AuditEntry) error {
	r := l.hasher.record(entry)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.records) < l.max {
		l.records = append(l.records, r)
		return nil
	}
	l.records[l.next] = r
	l.next = (l.next + 1) % l.max
	return nil
}

// Search returns matching records newest first, plus the total match count.
func (l *MemoryAccessLog) Search(_ context.Context, q AccessQuery) ([]AccessRecord, int, error) {
	q.normalize()
	hash := ""
	if q.PatientSSN != "" {
		hash = l.hasher.Patient(q.PatientSSN)
	}

	l.mu.RLock()
	var matched []AccessRecord
	for i := range l.records {
		r := l.records[(l.next+i)%len(l.records)]
		if hash != "" && r.patientHash != hash {
			continue
		}
		if q.DUZ != "" && r.DUZ != q.DUZ {
			continue
		}
		if !q.Since.IsZero() && r.AccessedAt.Before(q.Since) {
			continue
		}
		matched = append(matched, r)
	}
	l.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].AccessedAt.After(matched[j].AccessedAt)
	})

	total := len(matched)
	if q.Offset >= total {
		return []AccessRecord{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > total {
		end = total
	}
	return matched[q.Offset:end], total, nil
}
