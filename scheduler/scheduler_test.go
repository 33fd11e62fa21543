package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Modes(t *testing.T) {
	testCases := []struct {
		mode    string
		workers int
		want    int
	}{
		{"pool", 3, 3},
		{"POOL", 2, 2},
		{"serial", 8, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.mode, func(t *testing.T) {
			s, err := New(tc.mode, tc.workers, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Workers())
		})
	}

	_, err := New("OpenMP", 2, nil)
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestPool_DefaultWorkers(t *testing.T) {
	p := NewPool(0, nil)
	if p.Workers() < 1 {
		t.Errorf("Expected at least one worker, got %d", p.Workers())
	}
	if _, ok := p.Mapper().(RoundRobinMapper); !ok {
		t.Errorf("Expected RoundRobinMapper default, got %T", p.Mapper())
	}
}

func TestSpawn_RunsEveryTaskOnce(t *testing.T) {
	schedulers := map[string]Scheduler{
		"pool_rr":    NewPool(4, RoundRobinMapper{}),
		"pool_block": NewPool(4, BlockMapper{}),
		"pool_wide":  NewPool(64, nil),
		"serial":     Serial{},
	}
	for name, s := range schedulers {
		t.Run(name, func(t *testing.T) {
			const n = 37
			counts := make([]int32, n)
			err := s.Spawn(context.Background(), n, func(_ context.Context, id int) error {
				atomic.AddInt32(&counts[id], 1)
				return nil
			})
			require.NoError(t, err)
			for id, c := range counts {
				if c != 1 {
					t.Errorf("task %d ran %d times", id, c)
				}
			}
		})
	}
}

func TestSpawn_ZeroTasks(t *testing.T) {
	called := false
	fn := func(context.Context, int) error {
		called = true
		return nil
	}
	require.NoError(t, NewPool(2, nil).Spawn(context.Background(), 0, fn))
	require.NoError(t, Serial{}.Spawn(context.Background(), 0, fn))
	assert.False(t, called)
}

func TestSpawn_InvalidArguments(t *testing.T) {
	p := NewPool(2, nil)
	assert.Error(t, p.Spawn(context.Background(), -1, func(context.Context, int) error { return nil }))
	assert.Error(t, p.Spawn(context.Background(), 3, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Spawn(ctx, 3, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpawn_FirstErrorAbortsPhase(t *testing.T) {
	boom := errors.New("boom")

	t.Run("pool", func(t *testing.T) {
		var ran atomic.Int32
		// One worker: tasks after the failing one must be skipped
		p := NewPool(1, nil)
		err := p.Spawn(context.Background(), 10, func(_ context.Context, id int) error {
			ran.Add(1)
			if id == 3 {
				return boom
			}
			return nil
		})
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "task 3")
		assert.Equal(t, int32(4), ran.Load())
	})

	t.Run("pool_cancels_peers", func(t *testing.T) {
		p := NewPool(2, RoundRobinMapper{})
		err := p.Spawn(context.Background(), 2, func(ctx context.Context, id int) error {
			if id == 0 {
				return boom
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return errors.New("peer was not cancelled")
			}
		})
		require.ErrorIs(t, err, boom)
	})

	t.Run("serial", func(t *testing.T) {
		var ran int
		err := Serial{}.Spawn(context.Background(), 10, func(_ context.Context, id int) error {
			ran++
			if id == 5 {
				return boom
			}
			return nil
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 6, ran)
	})
}

func TestPool_InvalidMapper(t *testing.T) {
	bad := MapperFunc(func(taskID, _, workers int) int { return workers + taskID })
	p := NewPool(2, bad)
	err := p.Spawn(context.Background(), 4, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidWorker)
}

func TestPool_MapperPlacement(t *testing.T) {
	// Record which goroutine-local queue each task was placed in by the mapper
	var mu sync.Mutex
	order := make(map[int][]int)
	workerOf := MapperFunc(func(taskID, numTasks, workers int) int {
		return BlockMapper{}.Map(taskID, numTasks, workers)
	})
	p := NewPool(3, workerOf)
	err := p.Spawn(context.Background(), 7, func(_ context.Context, id int) error {
		w := BlockMapper{}.Map(id, 7, 3)
		mu.Lock()
		order[w] = append(order[w], id)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, order[0])
	assert.Equal(t, []int{3, 4}, order[1])
	assert.Equal(t, []int{5, 6}, order[2])
}
