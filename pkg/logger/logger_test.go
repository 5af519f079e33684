package logger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusforge/timetable-engine/pkg/config"
)

func TestNewDevelopmentLogger(t *testing.T) {
	logr, err := New(&config.Config{Env: config.EnvDevelopment, Log: config.LogConfig{Level: "debug", Format: "console"}})
	require.NoError(t, err)
	require.NotNil(t, logr)
	logr.Debug("wired")
}

func TestNewFallsBackOnBadLevel(t *testing.T) {
	logr, err := New(&config.Config{Env: config.EnvProduction, Log: config.LogConfig{Level: "shouting"}})
	require.NoError(t, err)
	require.NotNil(t, logr)
}
