package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/osemu"
)

func main() {
	configURL := flag.String("config", "config.txt", "configuration file URL (text or yaml)")
	duration := flag.Duration("duration", 10*time.Second, "how long to run batch admission")
	batch := flag.Bool("batch", true, "submit generated processes every batch-process-freq seconds")
	logLevel := flag.String("log-level", "info", "log level")
	traceFile := flag.String("trace", "", "write spans to file")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.WithError(err).Fatal("invalid log level")
	}
	options := []osemu.Option{osemu.WithLogLevel(level)}
	if *traceFile != "" {
		options = append(options, osemu.WithTracing("osemu", "0.1.0", *traceFile))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv, err := osemu.NewFromURL(ctx, *configURL, options...)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialise emulator")
	}
	if err = srv.Start(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to start emulator")
	}
	for _, name := range flag.Args() {
		if _, err = srv.Submit(ctx, name); err != nil {
			logrus.WithError(err).WithField("process", name).Warn("submit")
		}
	}
	if *batch {
		if err = srv.StartBatch(ctx); err != nil {
			logrus.WithError(err).Fatal("failed to start batch admission")
		}
	}

	select {
	case <-ctx.Done():
	case <-time.After(*duration):
	}
	srv.Shutdown(context.Background())

	if err = srv.Report(context.Background(), ""); err != nil {
		logrus.WithError(err).Error("failed to write report")
	}
	if err = srv.WriteVMStat(os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
