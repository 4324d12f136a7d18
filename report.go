package osemu

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/viant/osemu/internal/clock"
	"github.com/viant/osemu/service/report"
)

// Utilization returns the core utilization view.
func (s *Service) Utilization() report.Utilization {
	return report.Utilization{
		Cores:    s.config.NumCPU,
		Running:  s.scheduler.RunningProcesses(),
		Finished: s.scheduler.FinishedProcesses(),
	}
}

// Report appends the utilization report to URL, or to the configured report
// location when URL is empty.
func (s *Service) Report(ctx context.Context, URL string) error {
	if URL == "" {
		URL = s.config.ReportURL
	}
	if URL == "" {
		return fmt.Errorf("report location was empty")
	}
	buf := bytes.Buffer{}
	if err := report.WriteUtilization(&buf, s.Utilization()); err != nil {
		return err
	}
	if err := report.Append(ctx, s.fs, URL, buf.Bytes()); err != nil {
		return err
	}
	s.logger.WithField("url", URL).Info("report generated")
	return nil
}

// VMStat returns memory and tick statistics.
func (s *Service) VMStat() report.VMStat {
	active, idle := s.scheduler.Ticks()
	return report.VMStat{
		Timestamp:   clock.Timestamp(),
		Memory:      s.memory.Info(),
		ActiveTicks: active,
		IdleTicks:   idle,
	}
}

// WriteVMStat renders VMStat to w.
func (s *Service) WriteVMStat(w io.Writer) error {
	return report.WriteVMStat(w, s.VMStat())
}
