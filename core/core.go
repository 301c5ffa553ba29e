package core

import "github.com/hupe1980/carebook/logging"

// callLogger decorates a logging.Logger with the identifiers of one tool
// call so every record of the call carries thread_id, agent and fc_id.
type callLogger struct {
	logger logging.Logger
	attrs  []any
}

var _ logging.Logger = (*callLogger)(nil)

func newCallLogger(l logging.Logger, threadID, agentName, functionCallID string) *callLogger {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	return &callLogger{
		logger: l,
		attrs:  []any{"thread_id", threadID, "agent", agentName, "fc_id", functionCallID},
	}
}

func (l *callLogger) with(args []any) []any {
	out := make([]any, 0, len(l.attrs)+len(args))
	out = append(out, l.attrs...)
	return append(out, args...)
}

func (l *callLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, l.with(args)...) }

func (l *callLogger) Info(msg string, args ...any) { l.logger.Info(msg, l.with(args)...) }

func (l *callLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, l.with(args)...) }

func (l *callLogger) Error(msg string, args ...any) { l.logger.Error(msg, l.with(args)...) }
