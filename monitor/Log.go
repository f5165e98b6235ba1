package monitor

import "github.com/rs/zerolog"

// Log is a Sink which writes one log line per episode containing the
// episode index, its return, and the EWMA trend of all returns
type Log struct {
	logger     zerolog.Logger
	span       int
	minPeriods int
}

// NewLog returns a new Log sink writing to logger
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger, span: DefaultSpan, minPeriods: DefaultMinPeriods}
}

// Observe implements the Sink interface
func (l *Log) Observe(returns []float64) error {
	if len(returns) == 0 {
		return nil
	}
	ev := l.logger.Info().
		Int("episode", len(returns)-1).
		Float64("return", returns[len(returns)-1])
	if trend, ok := lastTrend(returns, l.span, l.minPeriods); ok {
		ev = ev.Float64("trend", trend)
	}
	ev.Msg("episode")
	return nil
}

// Close implements the Sink interface
func (l *Log) Close() error { return nil }
