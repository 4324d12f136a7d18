// Package backingstore keeps the append-only swap log written by the paging
// memory manager.  Each swap appends a swap-out record for the victim and a
// swap-in record for the requester as one block; the log is persisted as JSON
// lines through afs.
package backingstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/osemu/internal/clock"
	"github.com/viant/osemu/internal/idgen"
	"github.com/viant/osemu/model/process"
)

// Swap directions.
const (
	DirectionIn  = "swap-in"
	DirectionOut = "swap-out"
)

// Record describes one process crossing the memory boundary.
type Record struct {
	Time      string `json:"time"`
	Direction string `json:"direction"`
	PID       int    `json:"pid"`
	Process   string `json:"process"`
	Core      int    `json:"core"`
	Progress  int    `json:"progress"`
	Total     int    `json:"total"`
	Memory    int    `json:"memory"`
	RunID     string `json:"runId,omitempty"`
}

// NewRecord captures p's current state.
func NewRecord(direction string, p *process.Process) Record {
	info := p.Info()
	return Record{
		Time:      clock.Timestamp(),
		Direction: direction,
		PID:       info.PID,
		Process:   info.Name,
		Core:      info.CoreID,
		Progress:  info.Current,
		Total:     info.Total,
		Memory:    info.Memory,
	}
}

// Store is the swap log.  A Store without URL keeps records in memory only.
type Store struct {
	fs      afs.Service
	URL     string
	runID   string
	logger  *logrus.Logger
	mu      sync.Mutex
	records []Record
	buffer  bytes.Buffer
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithRunID overrides the generated run id.
func WithRunID(runID string) Option {
	return func(s *Store) {
		s.runID = runID
	}
}

// New creates a store persisting to URL.
func New(fs afs.Service, URL string, opts ...Option) *Store {
	s := &Store{fs: fs, URL: URL, runID: idgen.New(), logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	return s
}

// RunID returns the id stamped on every record.
func (s *Store) RunID() string { return s.runID }

// RecordSwap appends the swap-out record for out followed by the swap-in
// record for in.  Either may be nil.
func (s *Store) RecordSwap(ctx context.Context, in, out *process.Process) error {
	var block []Record
	if out != nil {
		block = append(block, NewRecord(DirectionOut, out))
	}
	if in != nil {
		block = append(block, NewRecord(DirectionIn, in))
	}
	return s.Append(ctx, block...)
}

// Append writes records as one block.
func (s *Store) Append(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		records[i].RunID = s.runID
		data, err := json.Marshal(records[i])
		if err != nil {
			return fmt.Errorf("failed to encode swap record: %w", err)
		}
		s.buffer.Write(data)
		s.buffer.WriteByte('\n')
		s.records = append(s.records, records[i])
		s.logger.WithFields(logrus.Fields{
			"direction": records[i].Direction,
			"pid":       records[i].PID,
			"process":   records[i].Process,
		}).Debug("backing store")
	}
	if s.URL == "" {
		return nil
	}
	if err := s.fs.Upload(ctx, s.URL, file.DefaultFileOsMode, bytes.NewReader(s.buffer.Bytes())); err != nil {
		return fmt.Errorf("failed to persist swap log %v: %w", s.URL, err)
	}
	return nil
}

// Records returns a copy of the log.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

// Len returns record count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Load reads a persisted log.
func Load(ctx context.Context, fs afs.Service, URL string) ([]Record, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load swap log %v: %w", URL, err)
	}
	var result []Record
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		record := Record{}
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to decode swap record: %w", err)
		}
		result = append(result, record)
	}
	return result, nil
}
