// Package report renders the utilization and VM statistics reports and
// appends them to report files.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/osemu/model/process"
	"github.com/viant/osemu/service/memory/manager"
	"github.com/viant/osemu/service/memory/paging"
)

const divider = "---------------------------\n"

// Utilization is the input of the utilization report.
type Utilization struct {
	Cores    int
	Running  []process.Info
	Finished []process.Info
}

// CoresUsed returns running process count.
func (u Utilization) CoresUsed() int {
	used := 0
	for _, info := range u.Running {
		if info.State == process.StateRunning {
			used++
		}
	}
	return used
}

// CPUUtilization returns percent of cores in use.
func (u Utilization) CPUUtilization() float64 {
	if u.Cores <= 0 {
		return 0
	}
	return float64(u.CoresUsed()) / float64(u.Cores) * 100
}

// WriteUtilization renders the utilization report.
func WriteUtilization(w io.Writer, u Utilization) error {
	used := u.CoresUsed()
	buf := bytes.Buffer{}
	buf.WriteString(divider)
	fmt.Fprintf(&buf, "CPU Utilization: %s%%\n", strconv.FormatFloat(u.CPUUtilization(), 'f', -1, 64))
	fmt.Fprintf(&buf, "Cores Used: %d\n", used)
	fmt.Fprintf(&buf, "Cores Available: %d\n\n\n", u.Cores-used)
	buf.WriteString("Running Processes:\n")
	for _, info := range u.Running {
		fmt.Fprintf(&buf, "Process: %s (%s) | Core: %s | %d / %d\n", info.Name, info.Timestamp, info.Core(), info.Current, info.Total)
	}
	buf.WriteString("\n\nFinished Processes:\n")
	for _, info := range u.Finished {
		fmt.Fprintf(&buf, "Process: %s (%s) | Core: Finished | %d / %d\n", info.Name, info.Timestamp, info.Current, info.Total)
	}
	buf.WriteString(divider)
	_, err := w.Write(buf.Bytes())
	return err
}

// VMStat is the input of the VM statistics report.
type VMStat struct {
	Timestamp   string
	Memory      manager.Info
	ActiveTicks int
	IdleTicks   int
}

// WriteVMStat renders VM statistics.  Paging counters are shown for the
// paging allocator only.
func WriteVMStat(w io.Writer, v VMStat) error {
	buf := bytes.Buffer{}
	buf.WriteString("+----------------------------------------+\n")
	buf.WriteString("|              VM STATISTICS             |\n")
	buf.WriteString("+----------------------------------------+\n")
	fmt.Fprintf(&buf, " Timestamp: %s\n", v.Timestamp)
	fmt.Fprintf(&buf, " Allocator: %s\n\n", v.Memory.Allocator)
	line := func(label string, value interface{}) {
		fmt.Fprintf(&buf, "      %-24s%v\n", label+":", value)
	}
	line("Total Memory", fmt.Sprintf("%d KB", v.Memory.Total))
	line("Used Memory", fmt.Sprintf("%d KB", v.Memory.Used))
	line("Total CPU Ticks", v.ActiveTicks+v.IdleTicks)
	line("Active CPU Ticks", v.ActiveTicks)
	line("Idle CPU Ticks", v.IdleTicks)
	if v.Memory.Allocator == paging.Name {
		line("Active Memory", fmt.Sprintf("%d KB", v.Memory.Active))
		line("Inactive Memory", fmt.Sprintf("%d KB", v.Memory.Inactive))
		line("Pages In", v.Memory.PagedIn)
		line("Pages Out", v.Memory.PagedOut)
	} else {
		line("Free Memory", fmt.Sprintf("%d KB", v.Memory.Free()))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Append adds data to the file at URL, creating it when missing.
func Append(ctx context.Context, fs afs.Service, URL string, data []byte) error {
	var content []byte
	exists, err := fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check %v: %w", URL, err)
	}
	if exists {
		if content, err = fs.DownloadWithURL(ctx, URL); err != nil {
			return fmt.Errorf("failed to read %v: %w", URL, err)
		}
	}
	content = append(content, data...)
	if err = fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("failed to write %v: %w", URL, err)
	}
	return nil
}
