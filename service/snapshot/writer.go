// Package snapshot writes per quantum memory stamp files.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/osemu/internal/clock"
	"github.com/viant/osemu/service/memory"
)

// FilePattern names a stamp file for a cycle.
const FilePattern = "memory_stamp_%02d.txt"

// Writer uploads stamp files under BaseURL.
type Writer struct {
	fs      afs.Service
	BaseURL string
}

// New creates a writer.
func New(fs afs.Service, baseURL string) *Writer {
	if fs == nil {
		fs = afs.New()
	}
	return &Writer{fs: fs, BaseURL: baseURL}
}

// URL returns the stamp location for cycle.
func (w *Writer) URL(cycle int) string {
	return url.Join(w.BaseURL, fmt.Sprintf(FilePattern, cycle))
}

// Write renders and uploads the stamp for cycle.
func (w *Writer) Write(ctx context.Context, cycle, capacity int, regions []memory.Region) error {
	content := Render(clock.Timestamp(), capacity, regions)
	URL := w.URL(cycle)
	if err := w.fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader(content)); err != nil {
		return fmt.Errorf("failed to write memory stamp %v: %w", URL, err)
	}
	return nil
}

// Render formats a stamp: header, then regions from the highest address down.
func Render(timestamp string, capacity int, regions []memory.Region) string {
	sorted := append([]memory.Region(nil), regions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })
	resident := 0
	owners := map[int]bool{}
	for _, region := range sorted {
		resident += region.Size()
		owners[region.PID] = true
	}
	buf := bytes.Buffer{}
	fmt.Fprintf(&buf, "Timestamp: (%s)\n", timestamp)
	fmt.Fprintf(&buf, "Number of processes in memory: %d\n", len(owners))
	fmt.Fprintf(&buf, "Total external fragmentation in KB: %d\n\n", capacity-resident)
	fmt.Fprintf(&buf, "-------end------ = %d\n\n", capacity)
	for _, region := range sorted {
		fmt.Fprintf(&buf, "%d\n%s\n%d\n\n", region.End, region.Name, region.Start)
	}
	buf.WriteString("--------start------- = 0\n")
	return buf.String()
}
