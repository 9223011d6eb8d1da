package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iaserrat/connwatch/internal/config"
	"github.com/iaserrat/connwatch/internal/logging"
	"github.com/iaserrat/connwatch/internal/metrics"
	"github.com/iaserrat/connwatch/internal/probe"
	"github.com/iaserrat/connwatch/internal/report"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "/etc/connwatch/config.toml", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	events, err := newEventLogger(cfg)
	if err != nil {
		return err
	}
	defer events.Close()

	connectTimeout := time.Duration(cfg.Probe.ConnectTimeoutMS) * time.Millisecond
	if connectTimeout > metrics.FailureCeiling {
		log.Warnf("probe.connect_timeout_ms (%d) exceeds the %v failure ceiling; successful connects past the ceiling still count as failures",
			cfg.Probe.ConnectTimeoutMS, metrics.FailureCeiling)
	}

	endpoints := make([]probe.Endpoint, 0, len(cfg.Targets))
	labels := make(map[probe.Endpoint]string, len(cfg.Targets))
	for _, t := range cfg.Targets {
		ep := probe.Endpoint{Hostname: t.Hostname, Port: t.Port}
		endpoints = append(endpoints, ep)
		labels[ep] = t.Service
	}

	agg := metrics.NewAggregator(metrics.DefaultBuckets)

	sink, err := report.NewSink(cfg.Report.Dir, labels, agg.Buckets())
	if err != nil {
		return err
	}

	prober := probe.New(probe.Config{
		ConnectTimeout: connectTimeout,
		DNSTimeout:     time.Duration(cfg.Probe.DNSTimeoutMS) * time.Millisecond,
		Resolvers:      cfg.Probe.Resolvers,
		Progress:       os.Stdout,
		Log:            log,
		Events:         events,
	})

	reporter := report.NewReporter(agg, sink,
		time.Duration(cfg.Report.IntervalSecs)*time.Second, log, events)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sampleCh := make(chan probe.Sample, 256)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		probe.RunSampler(ctx, endpoints, prober,
			time.Duration(cfg.Sampling.IntervalMS)*time.Millisecond, sampleCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for s := range sampleCh {
			agg.Record(s.Endpoint, s.Outcome)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()

	log.Infof("connwatch %s monitoring %d targets, press Ctrl+C to stop", version, len(cfg.Targets))
	for _, t := range cfg.Targets {
		log.Infof("  %s (%s:%d)", t.Service, t.Hostname, t.Port)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	<-sigCh
	log.Info("shutting down")

	cancel()
	wg.Wait()

	// whatever accumulated since the last periodic flush still gets written
	log.Info("writing final statistics")
	if err := reporter.Flush(time.Now()); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}

	return nil
}

func newEventLogger(cfg config.Config) (*logging.Logger, error) {
	hostID, err := os.Hostname()
	if err != nil || hostID == "" {
		hostID = "unknown"
	}
	return logging.New(logging.Config{
		Dir:         cfg.Logging.Dir,
		MaxMB:       cfg.Logging.MaxMB,
		MaxFiles:    cfg.Logging.MaxFiles,
		ToolName:    "connwatch",
		ToolVersion: version,
		HostID:      hostID,
	})
}
