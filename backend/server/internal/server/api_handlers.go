package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/fitlogd/fitlog/backend/server/internal/database"
	"github.com/fitlogd/fitlog/shared"
	"github.com/samber/lo"
)

func (s *Server) apiCreateUserHandler(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	if username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	if getMaximumNumberOfAllowedUsers() < math.MaxInt {
		numUsers, err := s.db.CountUsers(r.Context())
		checkGormError(err)
		if numUsers >= int64(getMaximumNumberOfAllowedUsers()) {
			respondError(w, http.StatusServiceUnavailable, fmt.Sprintf("this server allows a max of %d users", getMaximumNumberOfAllowedUsers()))
			return
		}
	}

	// An id form field, when present, becomes the new user's id. This mirrors
	// the original behavior; ids are store-assigned when the field is absent.
	user := &shared.User{ID: r.FormValue("id"), Username: username}
	err := s.db.UserCreate(r.Context(), user)
	if errors.Is(err, database.ErrUsernameTaken) {
		respondError(w, http.StatusConflict, "username already exists")
		return
	}
	checkGormError(err)

	if s.statsd != nil {
		s.statsd.Incr("fitlog.register", []string{}, 1.0)
	}

	respondJSON(w, user)
}

func (s *Server) apiListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.db.AllUsers(r.Context())
	checkGormError(err)

	respondJSON(w, users)
}

func (s *Server) apiAddExerciseHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.db.UserByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, database.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	checkGormError(err)

	duration, err := parseDuration(r.FormValue("duration"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "duration must be a number")
		return
	}

	// Resolve the date before constructing the record: an unparsable or
	// missing date becomes today.
	date := resolveExerciseDate(r.FormValue("date"))

	exercise := &shared.Exercise{
		Username:    user.Username,
		Description: r.FormValue("description"),
		Duration:    duration,
		Date:        date,
	}
	err = s.db.ExerciseCreate(r.Context(), exercise)
	checkGormError(err)

	if s.statsd != nil {
		s.statsd.Incr("fitlog.exercise", []string{}, 1.0)
	}

	respondJSON(w, shared.ExerciseResponse{
		UserID:      user.ID,
		Username:    user.Username,
		Description: exercise.Description,
		Duration:    exercise.Duration,
		Date:        exercise.Date.Format(shared.DateDisplay),
	})
}

func (s *Server) apiQueryLogHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.db.UserByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, database.ErrUserNotFound) {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	checkGormError(err)

	from := getDateQueryParam(r, "from")
	to := getDateQueryParam(r, "to")
	limit := getLimitQueryParam(r)

	exercises, err := s.db.ExercisesForUser(r.Context(), user.Username, from, to, limit)
	checkGormError(err)
	fmt.Printf("apiQueryLogHandler: Found %d exercises for %s\n", len(exercises), r.URL)

	log := shared.LogEntries(lo.Map(exercises, func(exercise *shared.Exercise, _ int) shared.LogEntry {
		return shared.LogEntry{
			Description: exercise.Description,
			Duration:    exercise.Duration,
			Date:        exercise.Date.Format(shared.DateDisplay),
		}
	}))

	// Every query leaves a snapshot behind. The response below is built from
	// the in-memory projection, never from a snapshot re-read.
	err = s.db.LogSnapshotCreate(r.Context(), &database.LogSnapshot{
		Username: user.Username,
		Count:    len(log),
		Log:      log,
	})
	checkGormError(err)

	if s.statsd != nil {
		s.statsd.Incr("fitlog.log_query", []string{}, 1.0)
	}

	respondJSON(w, shared.LogResponse{
		UserID:   user.ID,
		Username: user.Username,
		Count:    len(log),
		Log:      log,
	})
}
