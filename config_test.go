package osemu

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/osemu/service/memory/flat"
	"github.com/viant/osemu/service/memory/paging"
)

func upload(t *testing.T, fs afs.Service, URL, content string) {
	t.Helper()
	require.NoError(t, fs.Upload(context.Background(), URL, file.DefaultFileOsMode, strings.NewReader(content)))
}

func TestLoadConfig(t *testing.T) {
	fs := afs.New()
	testCases := []struct {
		description string
		URL         string
		content     string
		expect      func(t *testing.T, cfg *Config)
		hasError    bool
	}{
		{
			description: "text format",
			URL:         "mem://localhost/osemu/config/a/config.txt",
			content: `# emulator
num-cpu 2
scheduler "fcfs"
quantum-cycles 3
batch-process-freq 0.5
min-ins 10
max-ins 20
delays-per-exec 0
max-overall-mem 1024
mem-per-frame 16
min-mem-per-proc 64
max-mem-per-proc 256
min-page-per-proc 1
max-page-per-proc 4
unknown-key 42
`,
			expect: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2, cfg.NumCPU)
				assert.Equal(t, "fcfs", cfg.Scheduler)
				assert.Equal(t, 500*time.Millisecond, cfg.BatchInterval())
				assert.Equal(t, 256, cfg.MaxMemPerProc)
				assert.False(t, cfg.MemoryConfig().IsFlat())
			},
		},
		{
			description: "missing keys keep defaults",
			URL:         "mem://localhost/osemu/config/b/config.txt",
			content:     "num-cpu 8\n",
			expect: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.NumCPU)
				assert.Equal(t, DefaultConfig().QuantumCycles, cfg.QuantumCycles)
				assert.True(t, cfg.MemoryConfig().IsFlat())
			},
		},
		{
			description: "yaml format",
			URL:         "mem://localhost/osemu/config/c/config.yaml",
			content:     "num-cpu: 3\nscheduler: rr\nquantum-cycles: 2\neviction-policy: lru\nseed: 9\n",
			expect: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3, cfg.NumCPU)
				assert.Equal(t, "lru", cfg.EvictionPolicy)
				assert.EqualValues(t, 9, cfg.Seed)
			},
		},
		{
			description: "yaml non scalar value",
			URL:         "mem://localhost/osemu/config/f/config.yml",
			content:     "num-cpu: [1, 2]\n",
			hasError:    true,
		},
		{
			description: "malformed numeric",
			URL:         "mem://localhost/osemu/config/d/config.txt",
			content:     "num-cpu four\n",
			hasError:    true,
		},
		{
			description: "invalid range",
			URL:         "mem://localhost/osemu/config/e/config.txt",
			content:     "min-ins 10\nmax-ins 5\n",
			hasError:    true,
		},
		{
			description: "missing file",
			URL:         "mem://localhost/osemu/config/none/config.txt",
			hasError:    true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			if tc.content != "" {
				upload(t, fs, tc.URL, tc.content)
			}
			cfg, err := LoadConfig(context.Background(), fs, tc.URL)
			if tc.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.expect(t, cfg)
		})
	}
}

func TestConfig_ApplyTextNamesKey(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyText([]byte("num-cpu 2\nquantum-cycles x\n"))
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "line 2")
		assert.Contains(t, err.Error(), "quantum-cycles")
	}
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		description string
		mutate      func(c *Config)
		hasError    bool
	}{
		{description: "default", mutate: func(c *Config) {}},
		{description: "no cores", mutate: func(c *Config) { c.NumCPU = 0 }, hasError: true},
		{description: "unknown scheduler", mutate: func(c *Config) { c.Scheduler = "sjf" }, hasError: true},
		{description: "rr without quantum", mutate: func(c *Config) { c.QuantumCycles = 0 }, hasError: true},
		{description: "fcfs without quantum", mutate: func(c *Config) { c.Scheduler = "fcfs"; c.QuantumCycles = 0 }},
		{description: "memory over total", mutate: func(c *Config) { c.MaxMemPerProc = c.MaxOverallMem * 2 }, hasError: true},
		{description: "inverted pages", mutate: func(c *Config) { c.MinPagePerProc = 4; c.MaxPagePerProc = 2 }, hasError: true},
		{description: "unknown eviction", mutate: func(c *Config) { c.EvictionPolicy = "fifo" }, hasError: true},
		{description: "paging footprint over capacity", mutate: func(c *Config) {
			c.MaxOverallMem, c.MemPerFrame = 64, 1
			c.MinMemPerProc, c.MaxMemPerProc = 64, 64
			c.MinPagePerProc, c.MaxPagePerProc = 3, 3
		}, hasError: true},
		{description: "paging footprint fits", mutate: func(c *Config) {
			c.MaxOverallMem, c.MemPerFrame = 64, 1
			c.MinMemPerProc, c.MaxMemPerProc = 64, 64
			c.MinPagePerProc, c.MaxPagePerProc = 4, 4
		}},
		{description: "paging footprint over capacity in page range", mutate: func(c *Config) {
			c.MaxOverallMem, c.MemPerFrame = 64, 1
			c.MinMemPerProc, c.MaxMemPerProc = 64, 64
			c.MinPagePerProc, c.MaxPagePerProc = 4, 5
		}, hasError: true},
		{description: "zero batch freq", mutate: func(c *Config) { c.BatchProcessFreq = 0 }, hasError: true},
	}
	for _, tc := range testCases {
		cfg := DefaultConfig()
		tc.mutate(cfg)
		err := cfg.Validate()
		if tc.hasError {
			assert.Error(t, err, tc.description)
		} else {
			assert.NoError(t, err, tc.description)
		}
	}
}

func TestConfig_AllocatorSelection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapshotURL = ""
	srv, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, flat.Name, srv.MemoryInfo().Allocator)

	cfg = DefaultConfig()
	cfg.SnapshotURL = ""
	cfg.MaxPagePerProc = 2
	srv, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, paging.Name, srv.MemoryInfo().Allocator)
}

func TestConfig_SchedulerDelays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DelaysPerExec = 0.5
	engine := cfg.SchedulerConfig()
	assert.Equal(t, 500*time.Millisecond, engine.DispatchDelay)
	assert.Equal(t, InstructionDelay, engine.StepDelay)
}
