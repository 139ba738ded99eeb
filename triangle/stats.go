package main

import (
	"fmt"
	"time"
)

// frameStats accumulates frame times between periodic reports. Times come
// from hrtime so short frames are measured accurately.
type frameStats struct {
	interval time.Duration
	since    time.Duration
	frames   int
	busy     time.Duration
	slowest  time.Duration
}

func newFrameStats(interval, now time.Duration) *frameStats {
	return &frameStats{interval: interval, since: now}
}

// observe records one frame that took elapsed and ended at now. When an
// interval has passed it returns a summary and starts a new interval.
func (s *frameStats) observe(now, elapsed time.Duration) (string, bool) {
	s.frames++
	s.busy += elapsed
	if elapsed > s.slowest {
		s.slowest = elapsed
	}

	window := now - s.since
	if s.interval <= 0 || window < s.interval {
		return "", false
	}

	summary := fmt.Sprintf("%d frames in %s (%.1f fps), average %s, slowest %s",
		s.frames, window.Round(time.Millisecond),
		float64(s.frames)/window.Seconds(),
		(s.busy / time.Duration(s.frames)).Round(time.Microsecond),
		s.slowest.Round(time.Microsecond))

	*s = frameStats{interval: s.interval, since: now}
	return summary, true
}
