package osemu

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/osemu/model/process"
	"github.com/viant/osemu/service/backingstore"
	"github.com/viant/osemu/service/event"
	"github.com/viant/osemu/service/memory/eviction"
	"github.com/viant/osemu/service/snapshot"
)

func testConfig(base string) *Config {
	cfg := DefaultConfig()
	cfg.NumCPU = 2
	cfg.Scheduler = "fcfs"
	cfg.MinIns, cfg.MaxIns = 5, 10
	cfg.MaxOverallMem = 1024
	cfg.MinMemPerProc, cfg.MaxMemPerProc = 64, 64
	cfg.BatchProcessFreq = 0.01
	cfg.SnapshotURL = base + "/stamps"
	cfg.ReportURL = base + "/csopesy-log.txt"
	cfg.BackingStoreURL = base + "/swap.jsonl"
	return cfg
}

func waitFinished(t *testing.T, srv *Service, count int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(srv.FinishedProcesses()) >= count
	}, 5*time.Second, 5*time.Millisecond)
}

func TestService_SubmitAndFinish(t *testing.T) {
	ctx := context.Background()
	srv, err := New(testConfig("mem://localhost/osemu/service/fcfs"))
	require.NoError(t, err)
	require.NoError(t, srv.Start(ctx))
	defer srv.Shutdown(ctx)

	names := []string{"alpha", "beta", "gamma"}
	for _, name := range names {
		p, err := srv.Submit(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name)
	}
	waitFinished(t, srv, 3)

	for _, info := range srv.FinishedProcesses() {
		assert.Equal(t, info.Total, info.Current)
		assert.Equal(t, "none", info.Core())
	}
	info, ok := srv.Process(ctx, "beta")
	require.True(t, ok)
	assert.Equal(t, process.StateFinished, info.State)
	_, ok = srv.Process(ctx, "missing")
	assert.False(t, ok)

	memory := srv.MemoryInfo()
	assert.Equal(t, 0, memory.Used)
	assert.Equal(t, 1024, memory.Total)
	all, err := srv.Processes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_DuplicateName(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig("mem://localhost/osemu/service/dup")
	srv, err := New(cfg)
	require.NoError(t, err)
	_, err = srv.Submit(ctx, "same")
	require.NoError(t, err)
	_, err = srv.Submit(ctx, "same")
	assert.ErrorIs(t, err, ErrDuplicateName)

	p, err := srv.Submit(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, process.BatchName(p.PID), p.Name)
	srv.Shutdown(ctx)
}

func TestService_PagingRoundRobin(t *testing.T) {
	ctx := context.Background()
	base := "mem://localhost/osemu/service/paging"
	cfg := testConfig(base)
	cfg.NumCPU = 4
	cfg.Scheduler = "rr"
	cfg.QuantumCycles = 2
	cfg.MaxOverallMem = 64
	cfg.MemPerFrame = 1
	cfg.MinMemPerProc, cfg.MaxMemPerProc = 32, 32
	cfg.MinPagePerProc, cfg.MaxPagePerProc = 2, 2

	srv, err := New(cfg, WithEvictionPolicy(eviction.LowestID{}))
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = srv.Submit(ctx, "")
		require.NoError(t, err)
	}
	require.NoError(t, srv.Start(ctx))
	waitFinished(t, srv, 4)
	srv.Shutdown(ctx)

	memory := srv.MemoryInfo()
	assert.Greater(t, memory.PagedOut, 0)
	assert.Greater(t, memory.PagedIn, 0)
	assert.Equal(t, 0, memory.Used)

	swaps := srv.Swaps()
	require.NotEmpty(t, swaps)
	assert.Equal(t, backingstore.DirectionOut, swaps[0].Direction)
	persisted, err := backingstore.Load(ctx, afs.New(), cfg.BackingStoreURL)
	require.NoError(t, err)
	assert.Equal(t, len(swaps), len(persisted))

	stamp, err := afs.New().DownloadWithURL(ctx, snapshot.New(nil, cfg.SnapshotURL).URL(1))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(stamp), "Timestamp: ("))
	assert.Contains(t, string(stamp), "-------end------ = 64")

	progress := srv.Progress()
	assert.GreaterOrEqual(t, progress.Slices, 12)
	assert.Equal(t, 4, progress.Finished)
}

func TestService_Batch(t *testing.T) {
	ctx := context.Background()
	srv, err := New(testConfig("mem://localhost/osemu/service/batch"))
	require.NoError(t, err)
	require.NoError(t, srv.Start(ctx))

	require.NoError(t, srv.StartBatch(ctx))
	assert.True(t, srv.BatchRunning())
	assert.ErrorIs(t, srv.StartBatch(ctx), ErrBatchRunning)
	waitFinished(t, srv, 3)
	require.NoError(t, srv.StopBatch())
	assert.ErrorIs(t, srv.StopBatch(), ErrBatchStopped)
	assert.False(t, srv.BatchRunning())
	srv.Shutdown(ctx)

	for _, info := range srv.FinishedProcesses() {
		assert.Equal(t, process.BatchName(info.PID), info.Name)
	}
}

func TestService_ReportAndVMStat(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig("mem://localhost/osemu/service/report")
	srv, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, srv.Start(ctx))
	_, err = srv.Submit(ctx, "reported")
	require.NoError(t, err)
	waitFinished(t, srv, 1)
	srv.Shutdown(ctx)

	require.NoError(t, srv.Report(ctx, ""))
	require.NoError(t, srv.Report(ctx, ""))
	data, err := afs.New().DownloadWithURL(ctx, cfg.ReportURL)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "CPU Utilization: 0%"))
	assert.Contains(t, string(data), "Process: reported (")

	buf := bytes.Buffer{}
	require.NoError(t, srv.WriteVMStat(&buf))
	assert.Contains(t, buf.String(), "Allocator: FlatMemoryAllocator")
	active, idle := srv.VMStat().ActiveTicks, srv.VMStat().IdleTicks
	assert.Equal(t, 1, active)
	assert.GreaterOrEqual(t, idle, 0)

	info := srv.ConfigInfo()
	assert.Equal(t, 2, info.Cores)
	assert.Equal(t, "fcfs", info.Algorithm)
	assert.Equal(t, process.Range{Min: 5, Max: 10}, info.Ins)
}

func TestService_EventHandler(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	counts := map[event.Type]int{}
	srv, err := New(testConfig("mem://localhost/osemu/service/events"), WithEventHandler(func(e *event.Event[process.Info]) {
		mu.Lock()
		counts[e.Context.EventType]++
		mu.Unlock()
	}))
	require.NoError(t, err)
	require.NoError(t, srv.Start(ctx))
	for _, name := range []string{"a", "b", "c"} {
		_, err = srv.Submit(ctx, name)
		require.NoError(t, err)
	}
	waitFinished(t, srv, 3)
	srv.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, counts[event.TypeAdmitted])
	assert.Equal(t, 3, counts[event.TypeFinished])
}

func TestNewFromURL_AppliesOptionsOnce(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	URL := "mem://localhost/osemu/service/options/config.txt"
	upload(t, fs, URL, "num-cpu 2\nscheduler fcfs\n")

	calls := 0
	counting := func(s *Service) { calls++ }
	srv, err := NewFromURL(ctx, URL, WithFS(fs), counting)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, srv.ConfigInfo().Cores)
}

func TestService_EvictedProcessIsNotRunning(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig("mem://localhost/osemu/service/evicted")
	cfg.Scheduler = "rr"
	cfg.QuantumCycles = 3
	cfg.MinIns, cfg.MaxIns = 20, 20
	cfg.MaxOverallMem = 32
	cfg.MemPerFrame = 1
	cfg.MinMemPerProc, cfg.MaxMemPerProc = 32, 32
	cfg.MinPagePerProc, cfg.MaxPagePerProc = 2, 2

	srv, err := New(cfg)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = srv.Submit(ctx, "")
		require.NoError(t, err)
	}
	require.NoError(t, srv.Start(ctx))

	violations := 0
	deadline := time.Now().Add(5 * time.Second)
	for len(srv.FinishedProcesses()) < 2 && time.Now().Before(deadline) {
		procs, err := srv.registry.List(ctx)
		require.NoError(t, err)
		for _, p := range procs {
			if info := p.Info(); info.State == process.StateRunning && !info.Resident {
				violations++
			}
		}
		time.Sleep(200 * time.Microsecond)
	}
	srv.Shutdown(ctx)

	assert.Equal(t, 0, violations)
	assert.Len(t, srv.FinishedProcesses(), 2)
	assert.Greater(t, srv.MemoryInfo().PagedOut, 0)
}
