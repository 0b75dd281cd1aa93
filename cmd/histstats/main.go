package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/segmentio/histstats"
	"github.com/segmentio/histstats/prometheus"
	"github.com/segmentio/histstats/version"
)

// metric identifies histograms by the names declared in the configuration.
type metric string

func (m metric) String() string { return string(m) }

func main() {
	var fset = flag.NewFlagSet("histstats [options...] < samples", flag.ExitOnError)
	var config string
	var format string
	var addr string
	var interval time.Duration
	var onlyChanged bool
	var showVersion bool

	fset.StringVar(&config, "config", "", "Path to the YAML file declaring the histograms and their buckets")
	fset.StringVar(&format, "format", "text", "Format of the final export written to stdout (text or json)")
	fset.StringVar(&addr, "addr", "", "When set, the network address where histograms are served under /metrics while reading samples")
	fset.DurationVar(&interval, "interval", histstats.DefaultReportInterval, "Interval at which histograms are logged")
	fset.BoolVar(&onlyChanged, "only-changed", false, "Only log histograms that changed since the previous report")
	fset.BoolVar(&showVersion, "version", false, "Print the version and exit")
	fset.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version.String())
		return
	}

	if len(config) == 0 {
		errorf("missing -config")
	}

	if format != "text" && format != "json" {
		errorf("bad export format: %s", format)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		errorf("creating logger: %s", err)
	}
	defer logger.Sync()

	if err := run(logger, config, format, addr, interval, onlyChanged); err != nil {
		logger.Error("histstats failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(logger *zap.Logger, path, format, addr string, interval time.Duration, onlyChanged bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	config, err := histstats.LoadConfig(f)
	f.Close()
	if err != nil {
		return err
	}

	manager := histstats.NewSyncManager(histstats.ManagerConfig[metric]{
		Namespace: config.Namespace,
		Logger:    logger,
	})

	lookup := func(name string) (metric, bool) { return metric(name), true }
	if err := histstats.ApplyConfig[metric](manager, config, lookup); err != nil {
		return err
	}

	reporter := histstats.NewReporter(manager, histstats.ReporterConfig{
		Interval:    interval,
		OnlyChanged: onlyChanged,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	readCtx, cancel := context.WithCancel(ctx)

	group.Go(func() error {
		defer cancel()
		return waitSamples(readCtx, os.Stdin, manager, logger)
	})

	group.Go(func() error {
		return reporter.Run(readCtx)
	})

	if len(addr) != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", &prometheus.Handler[metric]{Manager: manager, Logger: logger})
		server := &http.Server{Addr: addr, Handler: mux}

		group.Go(func() error {
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		group.Go(func() error {
			<-readCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	// A second signal terminates the program during the final export.
	stop()

	if err := reporter.Report(); err != nil {
		return err
	}

	switch format {
	case "json":
		return manager.ExportJSON(os.Stdout)
	default:
		return manager.Export(os.Stdout)
	}
}

// waitSamples records the samples read from r until the end of the input or
// until ctx is canceled. Reads from r cannot be interrupted, when ctx is done
// the reading goroutine is abandoned and samples it still records after that
// are ignored by the final export.
func waitSamples(ctx context.Context, r io.Reader, manager *histstats.SyncManager[metric], logger *zap.Logger) error {
	done := make(chan error, 1)
	go func() { done <- readSamples(r, manager, logger) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		logger.Info("stopped reading samples", zap.Error(ctx.Err()))
		return nil
	}
}

// readSamples records the samples read from r. Each line holds the name of a
// histogram followed by one or more values separated by spaces.
func readSamples(r io.Reader, manager *histstats.SyncManager[metric], logger *zap.Logger) error {
	scanner := bufio.NewScanner(r)
	lineno := 0

	for scanner.Scan() {
		lineno++
		fields := strings.Fields(scanner.Text())

		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		if len(fields) == 1 {
			logger.Warn("missing sample value", zap.Int("line", lineno))
			continue
		}

		values := make([]float64, 0, len(fields)-1)

		for _, s := range fields[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				logger.Warn("bad sample value", zap.Int("line", lineno), zap.String("value", s))
				continue
			}
			values = append(values, v)
		}

		manager.RecordMany(metric(fields[0]), values...)
	}

	return scanner.Err()
}

func errorf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}
