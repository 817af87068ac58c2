package actuator

import (
	"context"
	"sync"

	"github.com/cyclopcam/logs"
)

// Logger is an Actuator that only logs. It remembers what it fired, which
// makes it handy in tests.
type Logger struct {
	log logs.Log

	mu    sync.Mutex
	fired []string
}

// NewLogger returns a log-only actuator.
func NewLogger(log logs.Log) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Fire(ctx context.Context, code string) error {
	l.mu.Lock()
	l.fired = append(l.fired, code)
	l.mu.Unlock()
	l.log.Infof("actuator: fire %s (dry run)", code)
	return nil
}

func (l *Logger) Test(ctx context.Context) error {
	l.log.Infof("actuator: test signal (dry run)")
	return nil
}

func (l *Logger) Close() error { return nil }

// Fired returns every code fired so far, in order.
func (l *Logger) Fired() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.fired...)
}
