package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/BerringDC/BDC-qc/internal/qc"
	"github.com/BerringDC/BDC-qc/pkg/config"
)

var start = time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

// slowProcessor records how many profiles it handles at once.
type slowProcessor struct {
	active  int32
	maxSeen int32
	delay   time.Duration
	fail    string
}

func (s *slowProcessor) Process(p qc.Profile) (qc.Profile, error) {
	n := atomic.AddInt32(&s.active, 1)
	defer atomic.AddInt32(&s.active, -1)
	for {
		seen := atomic.LoadInt32(&s.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&s.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(s.delay)
	if p.Vessel == s.fail {
		return qc.Profile{}, qc.ErrUnknownConfiguration
	}
	return p, nil
}

type memorySink struct {
	mu    sync.Mutex
	saved map[uuid.UUID]string
	err   error
}

func (m *memorySink) Save(_ context.Context, p qc.Profile) (uuid.UUID, error) {
	if m.err != nil {
		return uuid.Nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.saved[id] = p.Vessel
	return id, nil
}

func vessels(names ...string) []qc.Profile {
	out := make([]qc.Profile, len(names))
	for i, n := range names {
		out[i] = qc.Profile{Vessel: n}
	}
	return out
}

func TestRunOrderAndLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	proc := &slowProcessor{delay: 5 * time.Millisecond, fail: "bad"}
	names := []string{"a", "b", "bad", "c", "d", "e", "f", "g"}
	results := NewRunner(proc, nil, 3, nil).Run(context.Background(), vessels(names...))

	require.Len(t, results, len(names))
	for i, res := range results {
		if names[i] == "bad" {
			assert.True(t, errors.Is(res.Err, qc.ErrUnknownConfiguration))
			continue
		}
		require.NoError(t, res.Err)
		assert.Equal(t, names[i], res.Profile.Vessel)
		assert.Equal(t, uuid.Nil, res.ID)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&proc.maxSeen), int32(3))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&proc.maxSeen), int32(1))
}

func TestRunCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewRunner(&slowProcessor{}, nil, 2, nil).Run(ctx, vessels("a", "b", "c"))
	for _, res := range results {
		assert.True(t, errors.Is(res.Err, context.Canceled))
	}
}

func TestRunSavesToSink(t *testing.T) {
	defer goleak.VerifyNone(t)

	sink := &memorySink{saved: map[uuid.UUID]string{}}
	results := NewRunner(&slowProcessor{}, sink, 0, nil).Run(context.Background(), vessels("a", "b"))

	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, []string{"a", "b"}[i], sink.saved[res.ID])
	}
	assert.Len(t, sink.saved, 2)
}

func TestRunSinkFailure(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	results := NewRunner(&slowProcessor{}, sink, 1, nil).Run(context.Background(), vessels("a"))

	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "disk full")
	assert.Equal(t, "a", results[0].Profile.Vessel)
}

func TestRunWithEngine(t *testing.T) {
	defer goleak.VerifyNone(t)

	tables, err := config.DefaultConfig().Tables()
	require.NoError(t, err)
	engine := qc.NewEngine(tables, qc.WithClock(qc.FixedClock(start.Add(time.Hour))))

	good := qc.Profile{Vessel: "BDC-07", Gear: qc.GearFixed, Zone: "North Sea", Sensor: qc.SensorLowell}
	for i := 0; i < 20; i++ {
		good.Samples = append(good.Samples, qc.Sample{
			Time:        start.Add(time.Duration(i) * time.Minute),
			Latitude:    56,
			Longitude:   3,
			Pressure:    float64(i),
			Temperature: 10,
		})
	}
	unknown := good
	unknown.Sensor = "Sonar"

	results := NewRunner(engine, nil, 2, nil).Run(context.Background(), []qc.Profile{good, unknown, good})
	require.NoError(t, results[0].Err)
	require.NoError(t, results[2].Err)
	assert.True(t, errors.Is(results[1].Err, qc.ErrUnknownConfiguration))
	assert.Len(t, results[0].Profile.Samples, 20)
	for _, s := range results[0].Profile.Samples {
		assert.NotZero(t, s.Flag)
	}
}
