package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BerringDC/BDC-qc/internal/qc"
	"github.com/BerringDC/BDC-qc/internal/storage"
)

var start = time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *ProfileStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "profiles.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func annotated(vessel string, flags ...qc.FlagCode) qc.Profile {
	sal := 35.2
	p := qc.Profile{Vessel: vessel, Gear: qc.GearFixed, Zone: "North Sea", Sensor: qc.SensorNKE}
	for i, f := range flags {
		s := qc.Sample{
			Time:        start.Add(time.Duration(i) * time.Minute),
			Latitude:    56.1,
			Longitude:   3.2,
			Pressure:    float64(i) * 2.5,
			Temperature: 10.5,
			Phase:       qc.Descent,
			Flags:       map[qc.Check]qc.FlagCode{qc.CheckDate: qc.Pass, qc.CheckTempSpike: f},
			Flag:        f,
		}
		if i%2 == 0 {
			s.Salinity = &sal
		}
		p.Samples = append(p.Samples, s)
	}
	return p
}

func TestSaveAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	want := annotated("BDC-07", qc.Pass, qc.Suspect, qc.Fail, qc.Pass)
	id, err := s.Save(ctx, want)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stored profile mismatch (-want +got):\n%s", diff)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestSaveEmptyProfile(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, annotated("BDC-01"))
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Samples)

	list, err := s.ListRecent(ctx, "BDC-01", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].StartedAt)
	assert.Equal(t, 0, list[0].Samples)
}

func TestListRecent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i, vessel := range []string{"BDC-07", "BDC-09", "BDC-07"} {
		s.SetClock(qc.FixedClock(start.Add(time.Duration(i) * time.Hour)))
		id, err := s.Save(ctx, annotated(vessel, qc.Pass, qc.Suspect, qc.Suspect, qc.Fail))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	list, err := s.ListRecent(ctx, "BDC-07", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[1].ID)

	first := list[0]
	assert.Equal(t, start.Add(2*time.Hour), first.ProcessedAt)
	assert.Equal(t, 4, first.Samples)
	assert.Equal(t, 1, first.Pass)
	assert.Equal(t, 2, first.Suspect)
	assert.Equal(t, 1, first.Fail)
	require.NotNil(t, first.StartedAt)
	assert.Equal(t, start, *first.StartedAt)
	assert.Equal(t, start.Add(3*time.Minute), *first.EndedAt)

	all, err := s.ListRecent(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[1], all[1].ID)

	none, err := s.ListRecent(ctx, "BDC-99", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.db")
	ctx := context.Background()

	s, err := Open(path, nil)
	require.NoError(t, err)
	id, err := s.Save(ctx, annotated("BDC-07", qc.Pass))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got.Samples, 1)
}

func TestSaveCancelledContext(t *testing.T) {
	s := openStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, annotated("BDC-07", qc.Pass))
	require.Error(t, err)

	list, err := s.ListRecent(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
