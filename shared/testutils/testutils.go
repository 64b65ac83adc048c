package testutils

import (
	"os"
	"time"

	"github.com/fitlogd/fitlog/shared"
)

func BackupAndRestoreEnv(k string) func() {
	origValue := os.Getenv(k)
	return func() {
		if origValue == "" {
			os.Unsetenv(k)
		} else {
			os.Setenv(k, origValue)
		}
	}
}

func MakeFakeExercise(username, description string, duration float64, day string) *shared.Exercise {
	date, err := time.ParseInLocation(shared.DateOnly, day, time.Local)
	if err != nil {
		panic(err)
	}
	return &shared.Exercise{
		Username:    username,
		Description: description,
		Duration:    duration,
		Date:        date,
	}
}
