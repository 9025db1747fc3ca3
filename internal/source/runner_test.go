package source

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/go-tangra/go-tangra-diskhealth/internal/health"
)

type fakeAdapter struct {
	name   string
	emit   []health.Observation
	err    error
	block  bool
	panics bool
	calls  int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Collect(ctx context.Context, emit func(health.Observation)) error {
	f.calls++
	for _, o := range f.emit {
		emit(o)
	}
	if f.panics {
		panic("provider crashed")
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func serials(values ...string) []health.Observation {
	out := make([]health.Observation, len(values))
	for i, v := range values {
		out[i] = health.Observation{Source: "fake", SerialNumber: v}
	}
	return out
}

func TestChain_FallsBackWhenUnavailable(t *testing.T) {
	first := &fakeAdapter{name: "wmi", err: fmt.Errorf("%w: no wmi", ErrUnavailable)}
	second := &fakeAdapter{name: "gopsutil", emit: serials("A", "B")}
	c := NewChain(NameDiskEnumeration, zaptest.NewLogger(t), first, second)

	obs, err := collectAll(t, c)

	require.NoError(t, err)
	assert.Len(t, obs, 2)
	assert.Equal(t, "gopsutil", c.Provider())
}

func TestChain_FallsBackWhenFailingBeforeEmitting(t *testing.T) {
	first := &fakeAdapter{name: "wmi", err: errors.New("rpc down")}
	second := &fakeAdapter{name: "gopsutil", emit: serials("A")}
	c := NewChain(NameDiskEnumeration, zaptest.NewLogger(t), first, second)

	obs, err := collectAll(t, c)

	require.NoError(t, err)
	assert.Len(t, obs, 1)
	assert.Equal(t, "gopsutil", c.Provider())
}

func TestChain_StopsAfterPartialEmission(t *testing.T) {
	first := &fakeAdapter{name: "wmi", emit: serials("A"), err: errors.New("row decode")}
	second := &fakeAdapter{name: "gopsutil", emit: serials("B")}
	c := NewChain(NameDiskEnumeration, nil, first, second)

	obs, err := collectAll(t, c)

	assert.EqualError(t, err, "row decode")
	assert.Len(t, obs, 1)
	assert.Zero(t, second.calls)
	assert.Equal(t, "wmi", c.Provider())
}

func TestChain_AllUnavailable(t *testing.T) {
	c := NewChain(NameDiskEnumeration, nil,
		&fakeAdapter{name: "a", err: ErrUnavailable},
		&fakeAdapter{name: "b", err: ErrUnavailable})

	_, err := collectAll(t, c)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Empty(t, c.Provider())
}

func TestChain_FailureBeatsUnavailable(t *testing.T) {
	c := NewChain(NameDiskEnumeration, nil,
		&fakeAdapter{name: "a", err: errors.New("boom")},
		&fakeAdapter{name: "b", err: ErrUnavailable})

	_, err := collectAll(t, c)

	assert.ErrorContains(t, err, "a: boom")
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestChain_Empty(t *testing.T) {
	_, err := collectAll(t, NewChain("none", nil))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRunner_Statuses(t *testing.T) {
	r := NewRunner(zaptest.NewLogger(t), time.Second)

	ok := &fakeAdapter{name: "ok", emit: serials("A", "B")}
	missing := &fakeAdapter{name: "missing", err: ErrUnavailable}
	broken := &fakeAdapter{name: "broken", emit: serials("C"), err: errors.New("query failed")}
	crashing := &fakeAdapter{name: "crashing", emit: serials("D"), panics: true}

	batches, results := r.Run(context.Background(), ok, missing, broken, crashing)

	require.Len(t, batches, 4)
	require.Len(t, results, 4)

	assert.Len(t, batches[0], 2)
	assert.Equal(t, StatusOK, results[0].Status)
	assert.Equal(t, 2, results[0].Observations)
	assert.Empty(t, results[0].Error)

	assert.Empty(t, batches[1])
	assert.Equal(t, StatusUnavailable, results[1].Status)

	assert.Len(t, batches[2], 1, "observations before a failure are kept")
	assert.Equal(t, StatusFailed, results[2].Status)
	assert.Equal(t, "query failed", results[2].Error)

	assert.Len(t, batches[3], 1)
	assert.Equal(t, StatusFailed, results[3].Status)
	assert.Contains(t, results[3].Error, "provider crashed")
}

func TestRunner_TimeoutKeepsPartialResults(t *testing.T) {
	r := NewRunner(zaptest.NewLogger(t), 50*time.Millisecond)

	slow := &fakeAdapter{name: "slow", emit: serials("A", "B"), block: true}
	after := &fakeAdapter{name: "after", emit: serials("C")}

	batches, results := r.Run(context.Background(), slow, after)

	assert.Len(t, batches[0], 2)
	assert.Equal(t, StatusTimeout, results[0].Status)
	assert.Equal(t, 2, results[0].Observations)
	assert.GreaterOrEqual(t, results[0].Duration, 50*time.Millisecond)

	assert.Len(t, batches[1], 1, "later sources still run")
	assert.Equal(t, StatusOK, results[1].Status)
}

func TestRunner_ParentCancelIsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, results := NewRunner(nil, time.Second).Run(ctx, &fakeAdapter{name: "slow", block: true})

	assert.Equal(t, StatusFailed, results[0].Status)
}

func TestRunner_RecordsChainProvider(t *testing.T) {
	c := NewChain(NameDiskEnumeration, nil,
		&fakeAdapter{name: "wmi", err: ErrUnavailable},
		&fakeAdapter{name: "gopsutil", emit: serials("A")})

	_, results := NewRunner(nil, 0).Run(context.Background(), c)

	assert.Equal(t, NameDiskEnumeration, results[0].Source)
	assert.Equal(t, "gopsutil", results[0].Provider)
	assert.Equal(t, StatusOK, results[0].Status)
}

func TestBuffer_DropsAfterClose(t *testing.T) {
	var b buffer
	b.add(health.Observation{SerialNumber: "A"})
	got := b.close()
	b.add(health.Observation{SerialNumber: "B"})

	assert.Len(t, got, 1)
	assert.Len(t, b.obs, 1)
}
