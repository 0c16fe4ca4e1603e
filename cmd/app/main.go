package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dogmaai/magi-decision/internal/di"
	"github.com/dogmaai/magi-decision/pkg/config"

	"github.com/grafana/pyroscope-go"
)

// profilerLogger routes profiler diagnostics to the standard logger; debug output is dropped.
type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{}) { log.Printf("pyroscope: "+format, args...) }
func (profilerLogger) Debugf(string, ...interface{}) {}
func (profilerLogger) Errorf(format string, args ...interface{}) { log.Printf("pyroscope error: "+format, args...) }

func startProfiler(cfg *config.Config) (func(), error) {
	if !cfg.Profiling.Enabled {
		return func() {}, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.Profiling.AppName,
		ServerAddress:   cfg.Profiling.ServerAddress,
		Tags:            map[string]string{"env": cfg.Environment},
		Logger:          profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pyroscope start: %w", err)
	}
	return func() { _ = profiler.Stop() }, nil
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	stopProfiler, err := startProfiler(cfg)
	if err != nil {
		log.Fatalf("profiler: %v", err)
	}
	defer stopProfiler()

	log.Printf("env=%s port=%d kafka=%t clickhouse=%t redis=%t",
		cfg.Environment, cfg.Server.Port, cfg.Kafka.Enabled, cfg.ClickHouse.Enabled, cfg.Redis.Enabled)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
