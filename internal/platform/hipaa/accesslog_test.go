package hipaa

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ehr/gateway/internal/platform/middleware"
)

type fakeDB struct {
	sql  string
	args []any
	err  error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestHasher_PatientIsKeyedAndStable(t *testing.T) {
	a := NewHasher([]byte("key-a"))
	b := NewHasher([]byte("key-b"))

	if a.Patient("123-45-6789") != a.Patient("123456789") {
		t.Error("expected dashes to be ignored")
	}
	if a.Patient("123456789") == b.Patient("123456789") {
		t.Error("expected different keys to give different hashes")
	}
	if len(a.Patient("123456789")) != 64 {
		t.Error("expected hex sha256 length")
	}
}

func TestPGAccessLog_RecordAccessNeverStoresSSN(t *testing.T) {
	db := &fakeDB{}
	log := NewPGAccessLog(db, NewHasher([]byte("k")))

	err := log.RecordAccess(context.Background(), middleware.AuditEntry{
		DUZ: "520", PatientSSN: "123456789", Resource: "notes", Action: "read",
		Route: "/api/v1/patients/:ssn/notes", Method: "GET", StatusCode: 200,
		SessionID: "jti-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(db.sql, "INSERT INTO phi_access_log") {
		t.Errorf("unexpected SQL %q", db.sql)
	}
	for _, a := range db.args {
		if s, ok := a.(string); ok && strings.Contains(s, "123456789") {
			t.Errorf("full SSN written to the database: %v", db.args)
		}
	}
	if db.args[4] != "6789" {
		t.Errorf("expected last4 column, got %v", db.args[4])
	}
	if db.args[13] != "jti-1" {
		t.Errorf("expected session id column, got %v", db.args[13])
	}
}

func TestPGAccessLog_RecordAccessWrapsError(t *testing.T) {
	log := NewPGAccessLog(&fakeDB{err: errors.New("conn closed")}, NewHasher(nil))
	err := log.RecordAccess(context.Background(), middleware.AuditEntry{PatientSSN: "123456789"})
	if err == nil || !strings.Contains(err.Error(), "insert phi access") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestMemoryAccessLog_Search(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryAccessLog(NewHasher([]byte("k")), 0)
	base := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	log.RecordAccess(ctx, middleware.AuditEntry{DUZ: "1", PatientSSN: "111111111", Timestamp: base})
	log.RecordAccess(ctx, middleware.AuditEntry{DUZ: "2", PatientSSN: "111111111", Timestamp: base.Add(time.Hour)})
	log.RecordAccess(ctx, middleware.AuditEntry{DUZ: "1", PatientSSN: "222222222", Timestamp: base.Add(2 * time.Hour)})

	got, total, _ := log.Search(ctx, AccessQuery{PatientSSN: "111-11-1111"})
	if total != 2 || len(got) != 2 {
		t.Fatalf("expected 2 records, got %d/%d", len(got), total)
	}
	if got[0].DUZ != "2" {
		t.Errorf("expected newest first, got %+v", got[0])
	}

	got, total, _ = log.Search(ctx, AccessQuery{DUZ: "1", Since: base.Add(30 * time.Minute)})
	if total != 1 || got[0].PatientLast4 != "2222" {
		t.Errorf("unexpected filtered result %+v", got)
	}

	got, total, _ = log.Search(ctx, AccessQuery{Offset: 5})
	if total != 3 || len(got) != 0 {
		t.Errorf("expected empty page past the end, got %d/%d", len(got), total)
	}
}

func TestMemoryAccessLog_DropsOldest(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryAccessLog(NewHasher(nil), 2)
	for _, duz := range []string{"1", "2", "3"} {
		log.RecordAccess(ctx, middleware.AuditEntry{DUZ: duz, PatientSSN: "123456789"})
	}
	_, total, _ := log.Search(ctx, AccessQuery{DUZ: "1"})
	if total != 0 {
		t.Error("expected oldest record to be dropped")
	}
	_, total, _ = log.Search(ctx, AccessQuery{})
	if total != 2 {
		t.Errorf("expected 2 records, got %d", total)
	}
}

func TestMemoryAccessLog_WrapKeepsOrder(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryAccessLog(NewHasher(nil), 3)
	at := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	for _, duz := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		log.RecordAccess(ctx, middleware.AuditEntry{DUZ: duz, Timestamp: at})
	}

	got, total, _ := log.Search(ctx, AccessQuery{})
	if total != 3 {
		t.Fatalf("expected 3 records, got %d", total)
	}
	var duzs []string
	for _, r := range got {
		duzs = append(duzs, r.DUZ)
	}
	if strings.Join(duzs, ",") != "5,6,7" {
		t.Errorf("expected insertion order among equal timestamps, got %v", duzs)
	}
}
