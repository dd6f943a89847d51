package memory

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceRand returns the queued values in order, ignoring n.
type sequenceRand struct {
	values []int
	calls  []int
}

func (s *sequenceRand) Intn(n int) int {
	s.calls = append(s.calls, n)
	v := s.values[0]
	s.values = s.values[1:]
	return v
}

func fill(m *Memory[string, int], n int) {
	for i := 0; i < n; i++ {
		m.Append(fmt.Sprintf("o%d", i), i, float64(i)*0.5, i%3 == 0)
	}
}

func TestNew_InvalidLimit(t *testing.T) {
	for _, limit := range []int{0, -5} {
		m, err := New[string, int](limit)
		assert.Nil(t, m)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestMemory_NbEntries(t *testing.T) {
	m, err := New[string, int](5)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Limit())

	for k := 1; k <= 12; k++ {
		m.Append("o", k, 1, false)
		want := k
		if want > 5 {
			want = 5
		}
		assert.Equal(t, want, m.NbEntries())
		assert.Equal(t, want, m.actions.Len())
		assert.Equal(t, want, m.rewards.Len())
		assert.Equal(t, want, m.terminals.Len())
	}

	stats := m.Stats()
	assert.Equal(t, Stats{Entries: 5, Limit: 5, Appends: 12}, stats)
}

func TestMemory_SampleAfterWraparound(t *testing.T) {
	rng := &sequenceRand{values: []int{0}}
	m, err := New[string, int](5, WithRand(rng))
	require.NoError(t, err)

	fill(m, 7)
	require.Equal(t, 5, m.NbEntries())

	first, err := m.observations.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "o2", first)

	// Offset 0 from the lowest anchor (window length 2) is logical index 2, i.e. o4.
	batch, err := m.Sample(1, 2)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, []int{3}, rng.calls)

	exp := batch[0]
	assert.Equal(t, []string{"o2", "o3"}, exp.State0)
	assert.Equal(t, 3, exp.Action)
	assert.Equal(t, 1.5, exp.Reward)
	assert.True(t, exp.Terminal)
	assert.Equal(t, []string{"o3", "o4"}, exp.State1)
}

func TestMemory_SampleHighestAnchor(t *testing.T) {
	rng := &sequenceRand{values: []int{2}}
	m, err := New[string, int](5, WithRand(rng))
	require.NoError(t, err)
	fill(m, 7)

	batch, err := m.Sample(1, 2)
	require.NoError(t, err)

	exp := batch[0]
	assert.Equal(t, []string{"o4", "o5"}, exp.State0)
	assert.Equal(t, 5, exp.Action)
	assert.False(t, exp.Terminal)
	assert.Equal(t, []string{"o5", "o6"}, exp.State1)
}

func TestMemory_SampleShapes(t *testing.T) {
	m, err := New[string, int](50, WithRand(rand.New(rand.NewSource(42))))
	require.NoError(t, err)
	fill(m, 80)

	for _, window := range []int{1, 3, 10, 49} {
		batch, err := m.Sample(32, window)
		require.NoError(t, err)
		require.Len(t, batch, 32)

		for _, exp := range batch {
			require.Len(t, exp.State0, window)
			require.Len(t, exp.State1, window)
			for j := 0; j < window-1; j++ {
				assert.Equal(t, exp.State0[j+1], exp.State1[j])
			}
			// The action belongs to the step of the last observation in State0.
			assert.Equal(t, fmt.Sprintf("o%d", exp.Action), exp.State0[window-1])
			assert.Equal(t, float64(exp.Action)*0.5, exp.Reward)
			assert.Equal(t, exp.Action%3 == 0, exp.Terminal)
		}
	}
}

func TestMemory_SampleCoversAnchorRange(t *testing.T) {
	m, err := New[string, int](10, WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	fill(m, 10)

	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		batch, err := m.Sample(4, 3)
		require.NoError(t, err)
		for _, exp := range batch {
			seen[exp.Action] = true
		}
	}

	// Anchors 3..9 map to actions 2..8.
	for action := 2; action <= 8; action++ {
		assert.True(t, seen[action], "action %d never sampled", action)
	}
	assert.Len(t, seen, 7)
}

func TestMemory_SampleInsufficientData(t *testing.T) {
	m, err := New[string, int](10)
	require.NoError(t, err)

	_, err = m.Sample(1, 1)
	assert.ErrorIs(t, err, ErrInsufficientData)

	fill(m, 3)
	_, err = m.Sample(4, 5)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = m.Sample(4, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = m.Sample(4, 2)
	assert.NoError(t, err)
}

func TestMemory_SampleInvalidArguments(t *testing.T) {
	m, err := New[string, int](10)
	require.NoError(t, err)
	fill(m, 10)

	_, err = m.Sample(0, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = m.Sample(2, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = m.Sample(-1, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMemory_SampleDoesNotAlias(t *testing.T) {
	m, err := New[string, int](10, WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, err)
	fill(m, 10)

	batch, err := m.Sample(1, 3)
	require.NoError(t, err)
	original := batch[0].State1[0]
	batch[0].State0[1] = "mutated"

	assert.Equal(t, original, batch[0].State1[0])
	again, err := m.observations.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "o0", again)
}

func TestMemory_ExperienceAtPanicsOutsideRange(t *testing.T) {
	m, err := New[string, int](5)
	require.NoError(t, err)
	fill(m, 4)

	// Anchors below the window length or past the last entry break the read invariant.
	assert.Panics(t, func() { m.experienceAt(1, 2) })
	assert.Panics(t, func() { m.experienceAt(4, 2) })
	assert.NotPanics(t, func() { m.experienceAt(3, 2) })
}

func TestNew_NilRandFallsBack(t *testing.T) {
	var rng *rand.Rand
	m, err := New[string, int](5, WithRand(rng))
	require.NoError(t, err)
	fill(m, 5)

	assert.NotPanics(t, func() {
		batch, err := m.Sample(3, 2)
		require.NoError(t, err)
		assert.Len(t, batch, 3)
	})

	m, err = New[string, int](5, WithRand(nil))
	require.NoError(t, err)
	fill(m, 5)
	_, err = m.Sample(1, 1)
	assert.NoError(t, err)
}

func TestMemory_ConcurrentAppendAndSample(t *testing.T) {
	m, err := New[string, int](64, WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, err)
	fill(m, 16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 16; i < 2000; i++ {
			m.Append(fmt.Sprintf("o%d", i), i, float64(i)*0.5, i%3 == 0)
		}
	}()

	errs := make(chan error, 4)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				batch, err := m.Sample(8, 4)
				if err != nil {
					errs <- err
					return
				}
				for _, exp := range batch {
					if exp.State0[3] != fmt.Sprintf("o%d", exp.Action) || exp.Reward != float64(exp.Action)*0.5 {
						errs <- fmt.Errorf("misaligned experience %+v", exp)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
