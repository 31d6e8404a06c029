// Package progress defines the sink through which long-running attribution
// stages report status to a caller-supplied observer (a UI status bar, a
// log, a test recorder). Sinks must be safe to call from a worker
// goroutine.
package progress

import "github.com/kbukum/speakerkit/logger"

// Sink receives human-readable status messages with a completion fraction
// in [0, 1]. A negative percent means "unknown"; reported percentages are
// otherwise monotonically non-decreasing within one run.
type Sink interface {
	Report(message string, percent float64)
}

// Func adapts a plain function to a Sink.
type Func func(message string, percent float64)

// Report calls f.
func (f Func) Report(message string, percent float64) { f(message, percent) }

// Nop is a Sink that discards all reports.
var Nop Sink = Func(func(string, float64) {})

// LogSink reports progress through a structured logger.
type LogSink struct {
	Logger *logger.Logger
}

// NewLogSink creates a Sink that writes progress to log.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{Logger: log}
}

// Report logs the message at debug level with the percent as a field.
func (s *LogSink) Report(message string, percent float64) {
	if s.Logger == nil {
		return
	}
	if percent < 0 {
		s.Logger.Debug(message)
		return
	}
	s.Logger.Debug(message, logger.Fields(logger.FieldPercent, percent))
}

// Clamped wraps a Sink and enforces monotonically non-decreasing percents:
// a report below the high-water mark is forwarded at the mark instead.
type Clamped struct {
	sink Sink
	high float64
}

// NewClamped wraps sink with monotonic clamping.
func NewClamped(sink Sink) *Clamped {
	return &Clamped{sink: sink}
}

// Report forwards the message, raising percent to the high-water mark when
// a stage restarts its local scale.
func (c *Clamped) Report(message string, percent float64) {
	if percent < 0 {
		c.sink.Report(message, -1)
		return
	}
	if percent < c.high {
		percent = c.high
	}
	c.high = percent
	c.sink.Report(message, percent)
}
