package strategy

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engagement-engine/internal/models"
)

func TestProfileDefaultsWithoutCreatingState(t *testing.T) {
	s := NewStore(10)

	p := s.Profile("c1")

	assert.Equal(t, models.DefaultStrategyProfile("c1"), p)
	assert.False(t, s.Known("c1"))
	assert.Empty(t, s.Creators())
}

func TestCommitBumpsVersion(t *testing.T) {
	s := NewStore(10)

	tx := s.Begin("c1")
	p := tx.Profile()
	p.PersonaAdjustments["personalization"] = 0.6
	v, err := tx.Commit(42, &p)
	tx.Close()

	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.True(t, s.Known("c1"))
	assert.Equal(t, int64(1), s.Profile("c1").Version)
	assert.Equal(t, 0.6, s.Profile("c1").PersonaAdjustments["personalization"])

	tx = s.Begin("c1")
	defer tx.Close()
	assert.Equal(t, []float64{42}, tx.History(5))
}

func TestCommitRejectsStaleVersion(t *testing.T) {
	s := NewStore(10)

	tx := s.Begin("c1")
	stale := tx.Profile()
	fresh := tx.Profile()
	_, err := tx.Commit(1, &fresh)
	require.NoError(t, err)

	_, err = tx.Commit(2, &stale)
	tx.Close()

	assert.True(t, errors.Is(err, ErrStateConflict))
	tx = s.Begin("c1")
	defer tx.Close()
	assert.Equal(t, []float64{1}, tx.History(5))
}

func TestCommitWithoutProfileOnlyAppendsHistory(t *testing.T) {
	s := NewStore(3)

	for i := range 5 {
		tx := s.Begin("c1")
		v, err := tx.Commit(float64(i), nil)
		tx.Close()
		require.NoError(t, err)
		assert.Equal(t, int64(0), v)
	}

	assert.False(t, s.Known("c1"))
	assert.Equal(t, []float64{2, 3, 4}, s.Snapshot().History["c1"])
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := NewStore(10)
	tx := s.Begin("c1")
	p := tx.Profile()
	_, err := tx.Commit(7, &p)
	require.NoError(t, err)
	tx.Close()

	snap := s.Snapshot()
	restored := NewStore(10)
	restored.Restore(snap)

	assert.Equal(t, snap, restored.Snapshot())
	assert.Equal(t, []string{"c1"}, restored.Creators())
}

func TestRestoreWaitsForOpenTransaction(t *testing.T) {
	s := NewStore(10)
	tx := s.Begin("c1")
	base := tx.Profile()

	saved := models.DefaultStrategyProfile("c1")
	saved.Version = 5
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Restore(Snapshot{
			Profiles: map[string]models.StrategyProfile{"c1": saved},
			History:  map[string][]float64{"c1": {3, 4}},
		})
	}()

	require.Never(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)

	_, err := tx.Commit(1, &base)
	require.NoError(t, err)
	tx.Close()
	<-done

	assert.Equal(t, int64(5), s.Profile("c1").Version)

	next := s.Begin("c1")
	p := next.Profile()
	version, err := next.Commit(9, &p)
	next.Close()
	require.NoError(t, err)
	assert.Equal(t, int64(6), version)
	assert.Equal(t, []float64{3, 4, 9}, s.Snapshot().History["c1"])
}

func TestRestoreDropsCreatorsMissingFromSnapshot(t *testing.T) {
	s := NewStore(10)
	s.Seed(models.DefaultStrategyProfile("c1"))

	s.Restore(Snapshot{Profiles: map[string]models.StrategyProfile{"c2": models.DefaultStrategyProfile("c2")}})

	assert.False(t, s.Known("c1"))
	assert.True(t, s.Known("c2"))
	assert.Equal(t, []string{"c2"}, s.Creators())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(10)
	s.Seed(models.DefaultStrategyProfile("c1"))

	snap := s.Snapshot()
	snap.Profiles["c1"].PersonaAdjustments["emotion"] = 1

	assert.Equal(t, 0.5, s.Profile("c1").PersonaAdjustments["emotion"])
}

func TestSeedKeepsExistingProfile(t *testing.T) {
	s := NewStore(10)
	tx := s.Begin("c1")
	p := tx.Profile()
	_, err := tx.Commit(1, &p)
	require.NoError(t, err)
	tx.Close()

	seed := models.DefaultStrategyProfile("c1")
	seed.Version = 99
	s.Seed(seed)

	assert.Equal(t, int64(1), s.Profile("c1").Version)
}

func TestBeginSerializesPerCreator(t *testing.T) {
	s := NewStore(100)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				tx := s.Begin("c1")
				p := tx.Profile()
				_, err := tx.Commit(1, &p)
				tx.Close()
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(200), s.Profile("c1").Version)
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewStore(10)
	tx := s.Begin("c1")
	tx.Close()
	tx.Close()

	done := make(chan struct{})
	go func() {
		s.Begin("c1").Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("creator lock was not released")
	}
}
