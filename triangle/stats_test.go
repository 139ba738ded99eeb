package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFrameStats(t *testing.T) {
	stats := newFrameStats(time.Second, 0)

	_, ok := stats.observe(400*time.Millisecond, 10*time.Millisecond)
	require.False(t, ok)
	_, ok = stats.observe(800*time.Millisecond, 30*time.Millisecond)
	require.False(t, ok)

	summary, ok := stats.observe(time.Second, 20*time.Millisecond)
	require.True(t, ok)
	require.Equal(t, "3 frames in 1s (3.0 fps), average 20ms, slowest 30ms", summary)

	_, ok = stats.observe(1500*time.Millisecond, time.Millisecond)
	require.False(t, ok)
}

func TestFrameStatsDisabled(t *testing.T) {
	stats := newFrameStats(0, 0)

	_, ok := stats.observe(time.Hour, time.Millisecond)
	require.False(t, ok)
}
