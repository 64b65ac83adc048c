package database

import (
	"context"
	"fmt"
	"time"

	"github.com/fitlogd/fitlog/shared"
)

// LogSnapshot is a stored copy of a log-query result. One row accumulates per
// query performed; the query path never reads snapshots back, they exist as an
// audit trail and are pruned by the cron.
type LogSnapshot struct {
	ID        uint              `json:"-" gorm:"primaryKey"`
	Username  string            `json:"username" gorm:"not null"`
	Count     int               `json:"count"`
	Log       shared.LogEntries `json:"log" gorm:"type:text"`
	CreatedAt time.Time         `json:"-"`
}

func (db *DB) LogSnapshotCreate(ctx context.Context, snapshot *LogSnapshot) error {
	tx := db.WithContext(ctx).Create(snapshot)
	if tx.Error != nil {
		return fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return nil
}

func (db *DB) LogSnapshotsForUser(ctx context.Context, username string) ([]*LogSnapshot, error) {
	var snapshots []*LogSnapshot
	tx := db.WithContext(ctx).Where("username = ?", username).Find(&snapshots)
	if tx.Error != nil {
		return nil, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return snapshots, nil
}

func (db *DB) CountLogSnapshots(ctx context.Context) (int64, error) {
	var numSnapshots int64
	tx := db.WithContext(ctx).Model(&LogSnapshot{}).Count(&numSnapshots)
	if tx.Error != nil {
		return 0, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return numSnapshots, nil
}

// PruneLogSnapshots deletes snapshots older than maxAge and returns the number
// of rows removed.
func (db *DB) PruneLogSnapshots(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	r := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&LogSnapshot{})
	if r.Error != nil {
		return 0, fmt.Errorf("r.Error: %w", r.Error)
	}

	return r.RowsAffected, nil
}
