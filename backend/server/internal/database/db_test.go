package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/fitlogd/fitlog/shared"
	"github.com/fitlogd/fitlog/shared/testutils"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testDB *DB

func TestMain(m *testing.M) {
	db, err := OpenSQLite("file::memory:?_journal_mode=WAL&cache=shared", &gorm.Config{TranslateError: true})
	if err != nil {
		panic(fmt.Errorf("failed to connect to the DB: %w", err))
	}
	underlyingDb, err := db.DB.DB()
	if err != nil {
		panic(fmt.Errorf("failed to access underlying DB: %w", err))
	}
	underlyingDb.SetMaxOpenConns(1)
	db.Exec("PRAGMA journal_mode = WAL")
	if err := db.AddDatabaseTables(); err != nil {
		panic(fmt.Errorf("failed to add database tables: %w", err))
	}
	testDB = db
	os.Exit(m.Run())
}

func TestUserCreateAssignsId(t *testing.T) {
	user := &shared.User{Username: "newton"}
	require.NoError(t, testDB.UserCreate(context.TODO(), user))
	require.NotEmpty(t, user.ID)

	retrieved, err := testDB.UserByID(context.TODO(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "newton", retrieved.Username)

	retrieved, err = testDB.UserByUsername(context.TODO(), "newton")
	require.NoError(t, err)
	require.Equal(t, user.ID, retrieved.ID)
}

func TestUserCreateDuplicate(t *testing.T) {
	require.NoError(t, testDB.UserCreate(context.TODO(), &shared.User{Username: "leibniz"}))
	err := testDB.UserCreate(context.TODO(), &shared.User{Username: "leibniz"})
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUserNotFound(t *testing.T) {
	_, err := testDB.UserByID(context.TODO(), "no-such-id")
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = testDB.UserByUsername(context.TODO(), "no-such-user")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestAllUsersEmptySliceNotNil(t *testing.T) {
	users, err := testDB.AllUsers(context.TODO())
	require.NoError(t, err)
	require.NotNil(t, users, "AllUsers must return an empty slice, not nil, so it encodes as []")
}

func TestExercisesForUserFilters(t *testing.T) {
	require.NoError(t, testDB.UserCreate(context.TODO(), &shared.User{Username: "euler"}))
	days := []string{"2023-06-01", "2023-06-10", "2023-06-20"}
	for _, day := range days {
		require.NoError(t, testDB.ExerciseCreate(context.TODO(), testutils.MakeFakeExercise("euler", "lifting", 30, day)))
	}

	all, err := testDB.ExercisesForUser(context.TODO(), "euler", nil, nil, 100)
	require.NoError(t, err)
	require.Len(t, all, 3)

	from := time.Date(2023, 6, 5, 0, 0, 0, 0, time.Local)
	to := time.Date(2023, 6, 10, 0, 0, 0, 0, time.Local)
	bounded, err := testDB.ExercisesForUser(context.TODO(), "euler", &from, &to, 100)
	require.NoError(t, err)
	require.Len(t, bounded, 1, "the to bound is inclusive of the whole day")
	require.Equal(t, "2023-06-10", bounded[0].Date.Format(shared.DateOnly))

	limited, err := testDB.ExercisesForUser(context.TODO(), "euler", nil, nil, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)

	none, err := testDB.ExercisesForUser(context.TODO(), "nobody", nil, nil, 100)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestPruneLogSnapshots(t *testing.T) {
	oldSnapshot := &LogSnapshot{
		Username:  "euler",
		Count:     0,
		Log:       shared.LogEntries{},
		CreatedAt: time.Now().Add(-100 * 24 * time.Hour),
	}
	require.NoError(t, testDB.Create(oldSnapshot).Error)
	require.NoError(t, testDB.LogSnapshotCreate(context.TODO(), &LogSnapshot{
		Username: "euler",
		Count:    0,
		Log:      shared.LogEntries{},
	}))

	numPruned, err := testDB.PruneLogSnapshots(context.TODO(), 90*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), numPruned)

	remaining, err := testDB.LogSnapshotsForUser(context.TODO(), "euler")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}

func TestLogSnapshotRoundTrip(t *testing.T) {
	log := shared.LogEntries{
		{Description: "run", Duration: 30, Date: "Mon May 15 2023"},
		{Description: "swim", Duration: 45.5, Date: "Tue May 16 2023"},
	}
	require.NoError(t, testDB.LogSnapshotCreate(context.TODO(), &LogSnapshot{
		Username: "gauss",
		Count:    len(log),
		Log:      log,
	}))

	snapshots, err := testDB.LogSnapshotsForUser(context.TODO(), "gauss")
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	require.Equal(t, log, snapshots[0].Log)
}

func TestUserActivityStats(t *testing.T) {
	require.NoError(t, testDB.UserCreate(context.TODO(), &shared.User{Username: "noether"}))
	require.NoError(t, testDB.ExerciseCreate(context.TODO(), testutils.MakeFakeExercise("noether", "rowing", 30, "2023-07-01")))
	require.NoError(t, testDB.ExerciseCreate(context.TODO(), testutils.MakeFakeExercise("noether", "rowing", 12.5, "2023-07-02")))

	activityData, err := testDB.UserActivityStatsData(context.TODO())
	require.NoError(t, err)

	var found *UserActivityStats
	for _, data := range activityData {
		if data.Username == "noether" {
			found = data
		}
	}
	require.NotNil(t, found)
	require.Equal(t, 2, found.NumExercises)
	require.Equal(t, 42.5, found.TotalMinutes)
}
