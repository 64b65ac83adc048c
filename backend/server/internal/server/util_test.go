package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fitlogd/fitlog/shared"
	"github.com/stretchr/testify/require"
)

func TestResolveExerciseDate(t *testing.T) {
	resolved := resolveExerciseDate("2023-05-15")
	require.Equal(t, "Mon May 15 2023", resolved.Format(shared.DateDisplay))
	require.Equal(t, 0, resolved.Hour())

	today := truncateToDay(time.Now())
	require.Equal(t, today, resolveExerciseDate(""))
	require.Equal(t, today, resolveExerciseDate("every other thursday"))
}

func TestGetDateQueryParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/users/abc/logs?from=2023-01-05&to=garbage", nil)

	from := getDateQueryParam(r, "from")
	require.NotNil(t, from)
	require.Equal(t, "2023-01-05", from.Format(shared.DateOnly))

	require.Nil(t, getDateQueryParam(r, "to"))
	require.Nil(t, getDateQueryParam(r, "missing"))
}

func TestGetLimitQueryParam(t *testing.T) {
	require.Equal(t, 7, getLimitQueryParam(httptest.NewRequest("GET", "/?limit=7", nil)))
	require.Equal(t, defaultLogLimit, getLimitQueryParam(httptest.NewRequest("GET", "/", nil)))
	require.Equal(t, defaultLogLimit, getLimitQueryParam(httptest.NewRequest("GET", "/?limit=0", nil)))
	require.Equal(t, defaultLogLimit, getLimitQueryParam(httptest.NewRequest("GET", "/?limit=-3", nil)))
	require.Equal(t, defaultLogLimit, getLimitQueryParam(httptest.NewRequest("GET", "/?limit=abc", nil)))
}
