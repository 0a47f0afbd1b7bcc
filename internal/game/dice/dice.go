// Package dice provides the randomness sources injected into the battle
// engine and the battle simulator.
package dice

import "go.uber.org/zap"

// Source is the randomness provider for battle resolution.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a uniformly distributed float in [0, 1).
	Float64() float64
}

// LoggedSource wraps a Source and logs every draw at debug level, giving an
// audit trail for replaying a battle.
type LoggedSource struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedSource creates a LoggedSource drawing from src.
//
// Precondition: src and logger must be non-nil.
func NewLoggedSource(src Source, logger *zap.Logger) *LoggedSource {
	return &LoggedSource{src: src, logger: logger}
}

// Intn draws from the wrapped source and logs the result.
func (l *LoggedSource) Intn(n int) int {
	v := l.src.Intn(n)
	l.logger.Debug("dice draw", zap.String("kind", "intn"), zap.Int("n", n), zap.Int("value", v))
	return v
}

// Float64 draws from the wrapped source and logs the result.
func (l *LoggedSource) Float64() float64 {
	v := l.src.Float64()
	l.logger.Debug("dice draw", zap.String("kind", "float64"), zap.Float64("value", v))
	return v
}
