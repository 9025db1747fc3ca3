package winsvc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// eventID is the event identifier attached to every log entry.
const eventID = 1

// eventWriter is the subset of the Windows event log used for logging.
type eventWriter interface {
	Info(eid uint32, msg string) error
	Warning(eid uint32, msg string) error
	Error(eid uint32, msg string) error
}

// eventCore is a zapcore.Core that writes entries to an event log source.
// Event log records carry their own timestamp and severity, so neither is
// encoded into the message.
type eventCore struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
	out eventWriter
}

func newEventCore(out eventWriter, enab zapcore.LevelEnabler) *eventCore {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = ""
	cfg.LevelKey = ""
	cfg.CallerKey = ""
	cfg.StacktraceKey = "stacktrace"
	return &eventCore{
		LevelEnabler: enab,
		enc:          zapcore.NewConsoleEncoder(cfg),
		out:          out,
	}
}

func (c *eventCore) With(fields []zapcore.Field) zapcore.Core {
	clone := &eventCore{LevelEnabler: c.LevelEnabler, enc: c.enc.Clone(), out: c.out}
	for _, f := range fields {
		f.AddTo(clone.enc)
	}
	return clone
}

func (c *eventCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *eventCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	msg := buf.String()
	buf.Free()

	switch {
	case ent.Level >= zapcore.ErrorLevel:
		return c.out.Error(eventID, msg)
	case ent.Level == zapcore.WarnLevel:
		return c.out.Warning(eventID, msg)
	default:
		return c.out.Info(eventID, msg)
	}
}

func (c *eventCore) Sync() error { return nil }

// withEventCore routes log through out, keeping log's level.
func withEventCore(log *zap.Logger, out eventWriter) *zap.Logger {
	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return newEventCore(out, core)
	}))
}
