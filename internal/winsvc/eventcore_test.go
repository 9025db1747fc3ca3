package winsvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type event struct {
	kind string
	msg  string
}

type fakeEventLog struct {
	events []event
}

func (f *fakeEventLog) Info(_ uint32, msg string) error {
	f.events = append(f.events, event{"info", msg})
	return nil
}

func (f *fakeEventLog) Warning(_ uint32, msg string) error {
	f.events = append(f.events, event{"warning", msg})
	return nil
}

func (f *fakeEventLog) Error(_ uint32, msg string) error {
	f.events = append(f.events, event{"error", msg})
	return nil
}

func TestEventCore(t *testing.T) {
	out := &fakeEventLog{}
	base := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	log := withEventCore(base, out).With(zap.String("service", "DiskHealthAgent"))

	log.Debug("dropped")
	log.Info("agent started", zap.Int("disks", 2))
	log.Warn("stream disconnected")
	log.Error("rescan failed")

	require.Len(t, out.events, 3)
	assert.Equal(t, "info", out.events[0].kind)
	assert.Contains(t, out.events[0].msg, "agent started")
	assert.Contains(t, out.events[0].msg, `"disks": 2`)
	assert.Contains(t, out.events[0].msg, `"service": "DiskHealthAgent"`)
	assert.NotContains(t, out.events[0].msg, "INFO")
	assert.Equal(t, "warning", out.events[1].kind)
	assert.Equal(t, "error", out.events[2].kind)
}
