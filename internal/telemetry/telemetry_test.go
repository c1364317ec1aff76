package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BerringDC/BDC-qc/internal/qc"
	"github.com/BerringDC/BDC-qc/pkg/config"
)

var start = time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

func haul(n int) qc.Profile {
	p := qc.Profile{Vessel: "BDC-07", Gear: qc.GearFixed, Zone: "North Sea", Sensor: qc.SensorNKE}
	for i := 0; i < n; i++ {
		sal := 34.5 + float64(i)/100
		p.Samples = append(p.Samples, qc.Sample{
			Time:        start.Add(time.Duration(i) * time.Minute),
			Latitude:    56.25,
			Longitude:   3.5,
			Pressure:    float64(i),
			Temperature: 10 - float64(i)/10,
			Salinity:    &sal,
		})
	}
	return p
}

type recordingSink struct {
	saved []qc.Profile
	err   error
}

func (s *recordingSink) Save(_ context.Context, p qc.Profile) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	s.saved = append(s.saved, p)
	return uuid.New(), nil
}

func engine(t *testing.T) *qc.Engine {
	t.Helper()
	tables, err := config.DefaultConfig().Tables()
	require.NoError(t, err)
	return qc.NewEngine(tables, qc.WithClock(qc.FixedClock(start.Add(time.Hour))))
}

func TestPayloadRoundTrip(t *testing.T) {
	want := haul(12)
	speed := 0.4
	want.Samples[3].Speed = &speed

	data, err := EncodePayload(want)
	require.NoError(t, err)

	got, err := DecodePayload(data)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPayloadDropsAnnotations(t *testing.T) {
	p := haul(2)
	p.Samples[0].Flag = qc.Fail
	p.Samples[0].Phase = qc.Bottom

	data, err := EncodePayload(p)
	require.NoError(t, err)
	got, err := DecodePayload(data)
	require.NoError(t, err)
	assert.Equal(t, qc.PhaseUnknown, got.Samples[0].Phase)
	assert.Zero(t, got.Samples[0].Flag)
}

func TestDecodePayloadMalformed(t *testing.T) {
	for _, data := range [][]byte{nil, {0xc1}, {0x05}} {
		_, err := DecodePayload(data)
		assert.True(t, errors.Is(err, ErrMalformedPayload), "input %x: %v", data, err)
	}
}

func TestReceiverStoresProfile(t *testing.T) {
	sink := &recordingSink{}
	r := NewReceiver(engine(t), sink, nil)

	data, err := EncodePayload(haul(30))
	require.NoError(t, err)

	r.Connected()
	r.SignalUpdate(4)
	r.RxMessageQueue(1)
	r.RxReceived(17, data)

	require.Len(t, sink.saved, 1)
	for _, s := range sink.saved[0].Samples {
		assert.NotZero(t, s.Flag)
		assert.NotEqual(t, qc.PhaseUnknown, s.Phase)
	}

	st := r.Stats()
	assert.True(t, st.Connected)
	assert.Equal(t, 4, st.SignalLevel)
	assert.Equal(t, 1, st.Queued)
	assert.Equal(t, 17, st.LastMTMSN)
	assert.Equal(t, 1, st.Received)
	assert.Equal(t, 1, st.Stored)
	assert.Equal(t, 0, st.Rejected)
}

func TestReceiverRejects(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	sink := &recordingSink{}
	r := NewReceiver(engine(t), sink, zap.New(core).Sugar())

	unknown := haul(5)
	unknown.Zone = "Baltic"
	data, err := EncodePayload(unknown)
	require.NoError(t, err)

	r.RxReceived(1, []byte{0xc1})
	r.RxReceived(2, data)

	assert.Empty(t, sink.saved)
	st := r.Stats()
	assert.Equal(t, 2, st.Received)
	assert.Equal(t, 2, st.Rejected)
	assert.Equal(t, 2, logs.Len())

	_, err = r.Handle(context.Background(), 2, data)
	assert.True(t, errors.Is(err, qc.ErrUnknownConfiguration))
}

func TestReceiverSinkError(t *testing.T) {
	r := NewReceiver(engine(t), &recordingSink{err: errors.New("locked")}, nil)
	data, err := EncodePayload(haul(5))
	require.NoError(t, err)

	r.RxReceived(3, data)
	assert.Equal(t, 1, r.Stats().Rejected)
	assert.Equal(t, 0, r.Stats().Stored)
}

func TestReceiverLinkEvents(t *testing.T) {
	r := NewReceiver(engine(t), nil, nil)
	r.Connected()
	r.RxStarted()
	r.RxFailed()
	r.TxStarted()
	r.TxFailed()
	r.TxSuccess(42)
	r.SignalPass()
	r.SignalFail()
	r.Disconnected()

	st := r.Stats()
	assert.False(t, st.Connected)
	assert.Equal(t, 1, st.RxFailures)
	assert.Equal(t, 1, st.TxFailures)
	assert.Equal(t, 42, st.LastMOMSN)
}
