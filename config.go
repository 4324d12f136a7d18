package osemu

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/osemu/internal/kv"
	"github.com/viant/osemu/internal/yml"
	"github.com/viant/osemu/model/process"
	"github.com/viant/osemu/service/memory/eviction"
	"github.com/viant/osemu/service/memory/manager"
	"github.com/viant/osemu/service/memory/paging"
	"github.com/viant/osemu/service/scheduler"
	"github.com/viant/toolbox"
)

// InstructionDelay is the simulated time one instruction takes.
const InstructionDelay = time.Millisecond

// Config is the emulator configuration.  It is read once before the engine
// starts and stays immutable for the run.
type Config struct {
	NumCPU           int     `json:"num-cpu" yaml:"num-cpu"`
	Scheduler        string  `json:"scheduler" yaml:"scheduler"`
	QuantumCycles    int     `json:"quantum-cycles" yaml:"quantum-cycles"`
	BatchProcessFreq float64 `json:"batch-process-freq" yaml:"batch-process-freq"`
	MinIns           int     `json:"min-ins" yaml:"min-ins"`
	MaxIns           int     `json:"max-ins" yaml:"max-ins"`
	DelaysPerExec    float64 `json:"delays-per-exec" yaml:"delays-per-exec"`
	MaxOverallMem    int     `json:"max-overall-mem" yaml:"max-overall-mem"`
	MemPerFrame      int     `json:"mem-per-frame" yaml:"mem-per-frame"`
	MinMemPerProc    int     `json:"min-mem-per-proc" yaml:"min-mem-per-proc"`
	MaxMemPerProc    int     `json:"max-mem-per-proc" yaml:"max-mem-per-proc"`
	MinPagePerProc   int     `json:"min-page-per-proc" yaml:"min-page-per-proc"`
	MaxPagePerProc   int     `json:"max-page-per-proc" yaml:"max-page-per-proc"`
	EvictionPolicy   string  `json:"eviction-policy" yaml:"eviction-policy"`
	Seed             int64   `json:"seed" yaml:"seed"`

	// Output locations, any afs URL.  Empty disables the artifact.
	BackingStoreURL string `json:"backing-store-url" yaml:"backing-store-url"`
	SnapshotURL     string `json:"snapshot-url" yaml:"snapshot-url"`
	ReportURL       string `json:"report-url" yaml:"report-url"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		NumCPU:           4,
		Scheduler:        scheduler.AlgorithmRR,
		QuantumCycles:    5,
		BatchProcessFreq: 1,
		MinIns:           1000,
		MaxIns:           2000,
		MaxOverallMem:    16384,
		MemPerFrame:      16,
		MinMemPerProc:    4096,
		MaxMemPerProc:    4096,
		MinPagePerProc:   1,
		MaxPagePerProc:   1,
		EvictionPolicy:   eviction.NameRandom,
		Seed:             1,
		SnapshotURL:      "file://localhost/tmp/osemu/z_memLogs_z",
		ReportURL:        "file://localhost/tmp/osemu/csopesy-log.txt",
	}
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config was nil")
	}
	if err := c.SchedulerConfig().Validate(); err != nil {
		return err
	}
	if c.BatchProcessFreq <= 0 {
		return fmt.Errorf("batch-process-freq must be > 0")
	}
	if c.DelaysPerExec < 0 {
		return fmt.Errorf("delays-per-exec must be >= 0")
	}
	if c.MinIns <= 0 || c.MaxIns < c.MinIns {
		return fmt.Errorf("invalid instruction range: [%v, %v]", c.MinIns, c.MaxIns)
	}
	if c.MinMemPerProc <= 0 || c.MaxMemPerProc < c.MinMemPerProc {
		return fmt.Errorf("invalid memory range: [%v, %v]", c.MinMemPerProc, c.MaxMemPerProc)
	}
	if c.MaxMemPerProc > c.MaxOverallMem {
		return fmt.Errorf("max-mem-per-proc %v exceeds max-overall-mem %v", c.MaxMemPerProc, c.MaxOverallMem)
	}
	memoryConfig := c.MemoryConfig()
	if err := memoryConfig.Validate(); err != nil {
		return err
	}
	if !memoryConfig.IsFlat() {
		return c.validateFootprint()
	}
	return nil
}

// validateFootprint rejects paging setups where the largest process the
// factory can draw never fits, once pages are rounded to powers of two and
// spread over frames.
func (c *Config) validateFootprint() error {
	memory := c.ProcessSpec().MaxMemory()
	capacity := (c.MaxOverallMem / c.MemPerFrame) * c.MemPerFrame
	for pages := c.MinPagePerProc; pages <= c.MaxPagePerProc; pages++ {
		perPage := (memory + pages - 1) / pages
		footprint := paging.FrameCount(pages, perPage, c.MemPerFrame) * c.MemPerFrame
		if footprint > capacity {
			return fmt.Errorf("process of %v bytes in %v pages needs %v bytes, exceeding capacity %v", memory, pages, footprint, capacity)
		}
	}
	return nil
}

// SchedulerConfig derives the scheduling engine configuration.
func (c *Config) SchedulerConfig() scheduler.Config {
	result := scheduler.DefaultConfig()
	result.Cores = c.NumCPU
	result.Algorithm = strings.ToLower(c.Scheduler)
	result.Quantum = c.QuantumCycles
	result.DispatchDelay = seconds(c.DelaysPerExec)
	result.StepDelay = InstructionDelay
	return result
}

// MemoryConfig derives the memory manager configuration.
func (c *Config) MemoryConfig() manager.Config {
	return manager.Config{
		TotalMemory:    c.MaxOverallMem,
		FrameSize:      c.MemPerFrame,
		MinPage:        c.MinPagePerProc,
		MaxPage:        c.MaxPagePerProc,
		EvictionPolicy: c.EvictionPolicy,
		Seed:           c.Seed,
	}
}

// ProcessSpec derives the workload ranges.
func (c *Config) ProcessSpec() process.Spec {
	return process.Spec{
		Instructions: process.Range{Min: c.MinIns, Max: c.MaxIns},
		Memory:       process.Range{Min: c.MinMemPerProc, Max: c.MaxMemPerProc},
		Pages:        process.Range{Min: c.MinPagePerProc, Max: c.MaxPagePerProc},
	}
}

// BatchInterval returns the batch admission period.
func (c *Config) BatchInterval() time.Duration {
	return seconds(c.BatchProcessFreq)
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}

// LoadConfig reads configuration from URL.  YAML is used for .yaml and .yml
// files, the key value text format otherwise.  The result is validated.
func LoadConfig(ctx context.Context, fs afs.Service, URL string) (*Config, error) {
	if fs == nil {
		fs = afs.New()
	}
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	cfg := DefaultConfig()
	switch strings.ToLower(path.Ext(URL)) {
	case ".yaml", ".yml":
		if err = cfg.ApplyYAML(data); err != nil {
			return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
		}
	default:
		if err = cfg.ApplyText(data); err != nil {
			return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
		}
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return cfg, nil
}

// ApplyText overlays key value text on c.  Unrecognised keys are logged and
// ignored; missing keys keep their current value.
func (c *Config) ApplyText(data []byte) error {
	pairs, err := kv.Parse(data)
	if err != nil {
		return err
	}
	setters := c.setters()
	for _, pair := range pairs {
		set, ok := setters[strings.ToLower(pair.Key)]
		if !ok {
			logrus.WithFields(logrus.Fields{"key": pair.Key, "line": pair.Line}).Warn("unrecognized config parameter")
			continue
		}
		if err = set(pair.Value); err != nil {
			return fmt.Errorf("line %d: invalid %v value %q: %w", pair.Line, pair.Key, pair.Value, err)
		}
	}
	return nil
}

// ApplyYAML overlays a flat YAML mapping on c with the same key handling as
// ApplyText.
func (c *Config) ApplyYAML(data []byte) error {
	root, err := yml.Parse(data)
	if err != nil {
		return err
	}
	setters := c.setters()
	return root.Pairs(func(key string, node *yml.Node) error {
		set, ok := setters[strings.ToLower(key)]
		if !ok {
			logrus.WithFields(logrus.Fields{"key": key, "line": node.Line}).Warn("unrecognized config parameter")
			return nil
		}
		value, err := node.Scalar()
		if err != nil {
			return fmt.Errorf("%v: %w", key, err)
		}
		if err = set(value); err != nil {
			return fmt.Errorf("line %d: invalid %v value %q: %w", node.Line, key, value, err)
		}
		return nil
	})
}

func (c *Config) setters() map[string]func(string) error {
	intOf := func(target *int) func(string) error {
		return func(value string) error {
			v, err := toolbox.ToInt(value)
			if err != nil {
				return err
			}
			*target = v
			return nil
		}
	}
	floatOf := func(target *float64) func(string) error {
		return func(value string) error {
			v, err := toolbox.ToFloat(value)
			if err != nil {
				return err
			}
			*target = v
			return nil
		}
	}
	stringOf := func(target *string) func(string) error {
		return func(value string) error {
			*target = value
			return nil
		}
	}
	return map[string]func(string) error{
		"num-cpu":            intOf(&c.NumCPU),
		"scheduler":          stringOf(&c.Scheduler),
		"quantum-cycles":     intOf(&c.QuantumCycles),
		"batch-process-freq": floatOf(&c.BatchProcessFreq),
		"min-ins":            intOf(&c.MinIns),
		"max-ins":            intOf(&c.MaxIns),
		"delays-per-exec":    floatOf(&c.DelaysPerExec),
		"max-overall-mem":    intOf(&c.MaxOverallMem),
		"mem-per-frame":      intOf(&c.MemPerFrame),
		"min-mem-per-proc":   intOf(&c.MinMemPerProc),
		"max-mem-per-proc":   intOf(&c.MaxMemPerProc),
		"min-page-per-proc":  intOf(&c.MinPagePerProc),
		"max-page-per-proc":  intOf(&c.MaxPagePerProc),
		"eviction-policy":    stringOf(&c.EvictionPolicy),
		"seed": func(value string) error {
			v, err := toolbox.ToInt(value)
			if err != nil {
				return err
			}
			c.Seed = int64(v)
			return nil
		},
		"backing-store-url": stringOf(&c.BackingStoreURL),
		"snapshot-url":      stringOf(&c.SnapshotURL),
		"report-url":        stringOf(&c.ReportURL),
	}
}
