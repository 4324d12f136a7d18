package backingstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/osemu/model/process"
)

func TestStore_RecordSwap(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	URL := "mem://localhost/osemu/backing/swap.jsonl"
	store := New(fs, URL, WithRunID("run-1"))

	victim := process.New(1, "victim", "", 100, 16, 4)
	victim.Advance(40)
	victim.AssignCore(0)
	requester := process.New(2, "requester", "", 50, 8, 2)

	require.NoError(t, store.RecordSwap(ctx, requester, victim))
	require.NoError(t, store.RecordSwap(ctx, requester, nil))

	records := store.Records()
	require.Len(t, records, 3)
	assert.Equal(t, DirectionOut, records[0].Direction)
	assert.Equal(t, "victim", records[0].Process)
	assert.Equal(t, 40, records[0].Progress)
	assert.Equal(t, 0, records[0].Core)
	assert.Equal(t, DirectionIn, records[1].Direction)
	assert.Equal(t, 2, records[1].PID)
	assert.Equal(t, "run-1", records[2].RunID)

	persisted, err := Load(ctx, fs, URL)
	require.NoError(t, err)
	assert.Equal(t, records, persisted)
}

func TestStore_InMemory(t *testing.T) {
	store := New(nil, "")
	assert.NotEmpty(t, store.RunID())
	assert.NoError(t, store.RecordSwap(context.Background(), nil, nil))
	assert.Equal(t, 0, store.Len())
}

func TestStore_ConcurrentBlocks(t *testing.T) {
	store := New(nil, "")
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			in := process.New(id*2, "in", "", 1, 1, 1)
			out := process.New(id*2+1, "out", "", 1, 1, 1)
			_ = store.RecordSwap(context.Background(), in, out)
		}(i)
	}
	wg.Wait()
	records := store.Records()
	require.Len(t, records, 40)
	for i := 0; i < len(records); i += 2 {
		assert.Equal(t, DirectionOut, records[i].Direction)
		assert.Equal(t, DirectionIn, records[i+1].Direction)
		assert.Equal(t, records[i].PID-1, records[i+1].PID)
	}
}
