package logging

import (
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLevelForVerbosityMatchesSpecLevels(t *testing.T) {
	require.Equal(t, logrus.ErrorLevel, levelForVerbosity(0))
	require.Equal(t, logrus.InfoLevel, levelForVerbosity(1))
	require.Equal(t, logrus.DebugLevel, levelForVerbosity(2))
	require.Equal(t, logrus.TraceLevel, levelForVerbosity(3))
	// Anything above the documented range still maps to the most verbose
	// level rather than falling through to the default.
	require.Equal(t, logrus.TraceLevel, levelForVerbosity(9))
}

func TestNewSetsLevelFromVerbosity(t *testing.T) {
	log := New(Config{Verbosity: 2})
	require.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewWithBadFilePathWarnsRatherThanFails(t *testing.T) {
	// A directory that cannot hold a log file (no permission to create it
	// under a nonexistent parent) must not panic or return an error value —
	// New has no error return, so a failed file hook degrades to a warning
	// on the logger itself instead.
	log := New(Config{Verbosity: 1, FilePath: "/nonexistent-dir-for-test/out.log"})
	require.NotNil(t, log)
}

func TestBtclogAdapterForwardsLevel(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	adapter := NewBtclog(log)
	require.Equal(t, btclog.LevelWarn, adapter.Level())

	adapter.SetLevel(btclog.LevelDebug)
	require.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestBtclogAdapterForwardsFormattedCalls(t *testing.T) {
	log := logrus.New()
	adapter := NewBtclog(log)
	// These must not panic; the adapter's job is purely to forward.
	adapter.Infof("compiling %s", "script")
	adapter.Warn("implicit push")
	adapter.Criticalf("fatal: %v", "boom")
}

func TestBtclogLevelRoundTripsKnownLevels(t *testing.T) {
	pairs := []struct {
		l logrus.Level
		b btclog.Level
	}{
		{logrus.TraceLevel, btclog.LevelTrace},
		{logrus.DebugLevel, btclog.LevelDebug},
		{logrus.InfoLevel, btclog.LevelInfo},
		{logrus.WarnLevel, btclog.LevelWarn},
	}
	for _, p := range pairs {
		require.Equal(t, p.b, btclogLevel(p.l))
		require.Equal(t, p.l, logrusLevel(p.b))
	}
}
