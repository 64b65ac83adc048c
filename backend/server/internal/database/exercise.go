package database

import (
	"context"
	"fmt"
	"time"

	"github.com/fitlogd/fitlog/shared"
)

func (db *DB) ExerciseCreate(ctx context.Context, exercise *shared.Exercise) error {
	tx := db.WithContext(ctx).Create(exercise)
	if tx.Error != nil {
		return fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return nil
}

// ExercisesForUser returns at most limit exercises for the given username in
// insertion order. from/to bound the exercise date inclusively; a nil bound is
// not applied. Dates are stored at midnight, so "date <= to" covers the whole
// to-day.
func (db *DB) ExercisesForUser(ctx context.Context, username string, from, to *time.Time, limit int) ([]*shared.Exercise, error) {
	tx := db.WithContext(ctx).Where("username = ?", username)
	if from != nil {
		tx = tx.Where("date >= ?", *from)
	}
	if to != nil {
		tx = tx.Where("date <= ?", *to)
	}

	var exercises []*shared.Exercise
	tx = tx.Limit(limit).Find(&exercises)
	if tx.Error != nil {
		return nil, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return exercises, nil
}

func (db *DB) CountExercises(ctx context.Context) (int64, error) {
	var numExercises int64
	tx := db.WithContext(ctx).Model(&shared.Exercise{}).Count(&numExercises)
	if tx.Error != nil {
		return 0, fmt.Errorf("tx.Error: %w", tx.Error)
	}

	return numExercises, nil
}

type UserActivityStats struct {
	Username     string
	NumExercises int
	TotalMinutes float64
}

const userActivityStatsQuery = `
SELECT
	users.username as username,
	COUNT(exercises.id) as num_exercises,
	COALESCE(SUM(exercises.duration), 0) as total_minutes
FROM users
LEFT JOIN exercises ON users.username = exercises.username
GROUP BY users.username
ORDER BY users.username
`

func (db *DB) UserActivityStatsData(ctx context.Context) ([]*UserActivityStats, error) {
	var resp []*UserActivityStats

	rows, err := db.DB.WithContext(ctx).Raw(userActivityStatsQuery).Rows()
	if err != nil {
		return nil, fmt.Errorf("db.WithContext.Raw.Rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stats UserActivityStats

		err := rows.Scan(
			&stats.Username,
			&stats.NumExercises,
			&stats.TotalMinutes,
		)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		resp = append(resp, &stats)
	}

	return resp, nil
}
