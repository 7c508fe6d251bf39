// Package hipaa keeps the PHI access log: who touched which patient's data,
// when, and through which route. Patients are stored as a keyed hash plus the
// last four SSN digits, never as the full SSN.
package hipaa

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ehr/gateway/internal/platform/middleware"
)

// AccessRecord is one stored row of the access log.
type AccessRecord struct {
	ID           uuid.UUID `json:"id"`
	DUZ          string    `json:"duz"`
	UserName     string    `json:"user_name"`
	PatientLast4 string    `json:"patient_last4"`
	Resource     string    `json:"resource"`
	Action       string    `json:"action"`
	Route        string    `json:"route"`
	Method       string    `json:"method"`
	StatusCode   int       `json:"status_code"`
	IPAddress    string    `json:"ip_address"`
	RequestID    string    `json:"request_id"`
	SessionID    string    `json:"session_id,omitempty"`
	AccessedAt   time.Time `json:"accessed_at"`

	patientHash string
}

// AccessQuery filters a search. PatientSSN is hashed before it is compared.
type AccessQuery struct {
	PatientSSN string
	DUZ        string
	Since      time.Time
	Limit      int
	Offset     int
}

func (q *AccessQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// Hasher derives the stored patient key from an SSN.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher keyed with key. The same key must be used for
// writing and searching.
func NewHasher(key []byte) Hasher {
	return Hasher{key: key}
}

// Patient returns the hex HMAC-SHA256 of the normalized SSN.
func (h Hasher) Patient(ssn string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(strings.ReplaceAll(ssn, "-", "")))
	return hex.EncodeToString(mac.Sum(nil))
}

func last4(ssn string) string {
	if len(ssn) < 4 {
		return ssn
	}
	return ssn[len(ssn)-4:]
}

func (h Hasher) record(entry middleware.AuditEntry) AccessRecord {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return AccessRecord{
		ID:           uuid.New(),
		DUZ:          entry.DUZ,
		UserName:     entry.UserName,
		PatientLast4: last4(entry.PatientSSN),
		Resource:     entry.Resource,
		Action:       entry.Action,
		Route:        entry.Route,
		Method:       entry.Method,
		StatusCode:   entry.StatusCode,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		SessionID:    entry.SessionID,
		AccessedAt:   ts,
		patientHash:  h.Patient(entry.PatientSSN),
	}
}

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and *pgx.Conn.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGAccessLog stores the access log in PostgreSQL.
type PGAccessLog struct {
	db     DBTX
	hasher Hasher
}

// NewPGAccessLog creates a PGAccessLog.
func NewPGAccessLog(db DBTX, hasher Hasher) *PGAccessLog {
	return &PGAccessLog{db: db, hasher: hasher}
}

const insertAccess = `
	INSERT INTO phi_access_log (
		id, duz, user_name, patient_hash, patient_last4,
		resource, action, route, method, status_code,
		ip_address, user_agent, request_id, session_id, accessed_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

// RecordAccess implements middleware.AuditRecorder.
func (l *PGAccessLog) RecordAccess(ctx context.Context, entry middleware.AuditEntry) error {
	r := l.hasher.record(entry)
	_, err := l.db.Exec(ctx, insertAccess,
		r.ID, r.DUZ, r.UserName, r.patientHash, r.PatientLast4,
		r.Resource, r.Action, r.Route, r.Method, r.StatusCode,
		r.IPAddress, entry.UserAgent, r.RequestID, r.SessionID, r.AccessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert phi access: %w", err)
	}
	return nil
}

// Search returns matching records newest first, plus the total match count.
func (l *PGAccessLog) Search(ctx context.Context, q AccessQuery) ([]AccessRecord, int, error) {
	q.normalize()

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.PatientSSN != "" {
		add("patient_hash = $%d", l.hasher.Patient(q.PatientSSN))
	}
	if q.DUZ != "" {
		add("duz = $%d", q.DUZ)
	}
	if !q.Since.IsZero() {
		add("accessed_at >= $%d", q.Since)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := l.db.QueryRow(ctx, "SELECT COUNT(*) FROM phi_access_log"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count phi access: %w", err)
	}

	args = append(args, q.Limit, q.Offset)
	query := fmt.Sprintf(`SELECT id, duz, user_name, patient_last4, resource, action, route,
		method, status_code, ip_address, request_id, session_id, accessed_at
		FROM phi_access_log%s ORDER BY accessed_at DESC LIMIT $%d OFFSET $%d`,
		clause, len(args)-1, len(args))

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search phi access: %w", err)
	}
	defer rows.Close()

	var out []AccessRecord
	for rows.Next() {
		var r AccessRecord
		if err := rows.Scan(&r.ID, &r.DUZ, &r.UserName, &r.PatientLast4, &r.Resource, &r.Action,
			&r.Route, &r.Method, &r.StatusCode, &r.IPAddress, &r.RequestID, &r.SessionID, &r.AccessedAt); err != nil {
			return nil, 0, fmt.Errorf("scan phi access: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate phi access: %w", err)
	}
	return out, total, nil
}
