package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	pprofhttp "net/http/pprof"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/fitlogd/fitlog/shared"
	httptrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/net/http"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

const defaultLogLimit = 100

func getMaximumNumberOfAllowedUsers() int {
	maxNumUsersStr := os.Getenv("FITLOG_MAX_NUM_USERS")
	if maxNumUsersStr == "" {
		return math.MaxInt
	}
	maxNumUsers, err := strconv.Atoi(maxNumUsersStr)
	if err != nil {
		return math.MaxInt
	}
	return maxNumUsers
}

func configureObservability(mux *httptrace.ServeMux) func() {
	// Profiler
	err := profiler.Start(
		profiler.WithService("fitlog-api"),
		profiler.WithAPIKey(os.Getenv("DD_API_KEY")),
		profiler.WithUDS("/var/run/datadog/apm.socket"),
		profiler.WithProfileTypes(
			profiler.CPUProfile,
			profiler.HeapProfile,
		),
	)
	if err != nil {
		fmt.Printf("Failed to start DataDog profiler: %v\n", err)
	}
	// Tracer
	tracer.Start(
		tracer.WithRuntimeMetrics(),
		tracer.WithService("fitlog-api"),
		tracer.WithUDS("/var/run/datadog/apm.socket"),
	)

	// Pprof
	mux.HandleFunc("/debug/pprof/", pprofhttp.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprofhttp.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprofhttp.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprofhttp.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprofhttp.Trace)

	// Func to stop all of the above
	return func() {
		profiler.Stop()
		tracer.Stop()
	}
}

func getRemoteAddr(r *http.Request) string {
	addr, ok := r.Header["X-Real-Ip"]
	if !ok || len(addr) == 0 {
		return r.RemoteAddr
	}
	return addr[0]
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// resolveExerciseDate turns the submitted date field into a calendar date.
// Absent or unparsable input resolves to today.
func resolveExerciseDate(raw string) time.Time {
	if raw == "" {
		return truncateToDay(time.Now())
	}
	t, err := dateparse.ParseLocal(raw)
	if err != nil {
		return truncateToDay(time.Now())
	}
	return truncateToDay(t)
}

// getDateQueryParam parses an optional date-valued query param. Unparsable
// values are treated the same as absent ones, so a malformed bound widens the
// query instead of rejecting it.
func getDateQueryParam(r *http.Request, queryParam string) *time.Time {
	raw := r.URL.Query().Get(queryParam)
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseLocal(raw)
	if err != nil {
		return nil
	}
	day := truncateToDay(t)
	return &day
}

func getLimitQueryParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultLogLimit
	}
	return limit
}

func parseDuration(raw string) (float64, error) {
	return strconv.ParseFloat(raw, 64)
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Errorf("failed to JSON marshall the response: %w", err))
	}
}

func respondError(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(shared.ErrorResponse{Error: msg}); err != nil {
		panic(fmt.Errorf("failed to JSON marshall the error response: %w", err))
	}
}

func checkGormError(err error) {
	if err == nil {
		return
	}

	_, filename, line, _ := runtime.Caller(1)
	panic(fmt.Sprintf("DB error at %s:%d: %v", filename, line, err))
}
