package server

import (
	"fmt"
	"net/http"

	"github.com/fitlogd/fitlog/backend/server/internal/database"
	"github.com/fitlogd/fitlog/shared"

	"github.com/rodaine/table"
)

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if s.isProductionEnvironment {
		userCount, err := s.db.CountUsers(r.Context())
		checkGormError(err)
		if userCount < 1 {
			panic("Suspiciously few users!")
		}
		// Check that we can write to the DB. This snapshot gets written and
		// then eventually cleaned by the cron.
		err = s.db.LogSnapshotCreate(r.Context(), &database.LogSnapshot{
			Username: "healthcheck_user",
			Count:    0,
			Log:      shared.LogEntries{},
		})
		checkGormError(err)
	} else {
		err := s.db.Ping()
		if err != nil {
			panic(fmt.Errorf("failed to ping DB: %w", err))
		}
	}
	w.Write([]byte("OK"))
}

func (s *Server) triggerCronHandler(w http.ResponseWriter, r *http.Request) {
	err := s.cronFn(r.Context(), s.db, s.statsd)
	if err != nil {
		panic(err)
	}

	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) usageStatsHandler(w http.ResponseWriter, r *http.Request) {
	activityData, err := s.db.UserActivityStatsData(r.Context())
	if err != nil {
		panic(fmt.Errorf("db.UserActivityStatsData: %w", err))
	}

	tbl := table.New("Username", "Num Exercises", "Total Minutes")
	tbl.WithWriter(w)
	for _, data := range activityData {
		tbl.AddRow(
			data.Username,
			data.NumExercises,
			data.TotalMinutes,
		)
	}
	tbl.Print()
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	numUsers, err := s.db.CountUsers(r.Context())
	checkGormError(err)

	numExercises, err := s.db.CountExercises(r.Context())
	checkGormError(err)

	numSnapshots, err := s.db.CountLogSnapshots(r.Context())
	checkGormError(err)

	lastRegistration, err := s.db.DateOfLastRegistration(r.Context())
	checkGormError(err)

	_, _ = fmt.Fprintf(w, "Num users: %d\n", numUsers)
	_, _ = fmt.Fprintf(w, "Num exercises: %d\n", numExercises)
	_, _ = fmt.Fprintf(w, "Num log snapshots: %d\n", numSnapshots)
	_, _ = fmt.Fprintf(w, "Last registration: %s\n", lastRegistration)
}

func (s *Server) wipeDbEntriesHandler(w http.ResponseWriter, r *http.Request) {
	if s.isProductionEnvironment {
		panic("refusing to wipe the DB for prod")
	}
	if !s.isTestEnvironment {
		panic("refusing to wipe the DB non-test environment")
	}

	err := s.db.Unsafe_WipeDbEntries(r.Context())
	checkGormError(err)

	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getNumConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats()
	if err != nil {
		panic(err)
	}

	_, _ = fmt.Fprintf(w, "%#v", stats.OpenConnections)
}
