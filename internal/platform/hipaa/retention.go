package hipaa

import (
	"context"
	"fmt"
	"time"
)

// MinRetentionDays is the shortest retention allowed for the access log
// (six years).
const MinRetentionDays = 2190

// DefaultRetentionDays is used when no retention is configured (seven years).
const DefaultRetentionDays = 2555

// PurgeCutoff returns the instant before which records may be purged, or an
// error if days is below MinRetentionDays.
func PurgeCutoff(now time.Time, days int) (time.Time, error) {
	if days < MinRetentionDays {
		return time.Time{}, fmt.Errorf("retention of %d days is below the %d day minimum", days, MinRetentionDays)
	}
	return now.UTC().AddDate(0, 0, -days), nil
}

// Purge deletes access records older than retentionDays and returns how many
// rows were removed.
func (l *PGAccessLog) Purge(ctx context.Context, retentionDays int) (int64, error) {
	cutoff, err := PurgeCutoff(time.Now(), retentionDays)
	if err != nil {
		return 0, err
	}
	tag, err := l.db.Exec(ctx, `DELETE FROM phi_access_log WHERE accessed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge phi access: %w", err)
	}
	return tag.RowsAffected(), nil
}
