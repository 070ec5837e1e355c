package main

import (
	"flag"
	"fmt"
	"math/rand"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/Dieterbe/profiletrigger/heap"
	"github.com/grafana/globalconf"
	"github.com/grafana/hitcounter/api"
	"github.com/grafana/hitcounter/clock"
	"github.com/grafana/hitcounter/counter"
	"github.com/grafana/hitcounter/jaeger"
	"github.com/grafana/hitcounter/logger"
	"github.com/grafana/hitcounter/mode"
	"github.com/grafana/hitcounter/stats"
	statsConfig "github.com/grafana/hitcounter/stats/config"
	"github.com/grafana/hitcounter/store"
	"github.com/grafana/hitcounter/store/backend"
	"github.com/raintank/dur"
	log "github.com/sirupsen/logrus"
)

var (
	version = "(none)"

	apiServer *api.Server
	st        store.Store

	// Misc:
	instance    = flag.String("instance", "default", "instance identifier. used in emitted metrics")
	showVersion = flag.Bool("version", false, "print version string")
	confFile    = flag.String("config", "/etc/hitcounter/hitcounter.ini", "configuration file path")
	modeStr     = flag.String("mode", "public", "which api to serve. public: /status only. private: /secure-status only")

	// Profiling, instrumentation and logging:
	logLevel = flag.String("log-level", "info", "log level. panic|fatal|error|warning|info|debug")

	blockProfileRate = flag.Int("block-profile-rate", 0, "see https://golang.org/pkg/runtime/#SetBlockProfileRate")
	memProfileRate   = flag.Int("mem-profile-rate", 512*1024, "0 to disable. 1 for max precision (expensive!) see https://golang.org/pkg/runtime/#pkg-variables")

	proftrigPath       = flag.String("proftrigger-path", "/tmp", "path to store triggered profiles")
	proftrigFreqStr    = flag.String("proftrigger-freq", "60s", "inspect status frequency. set to 0 to disable")
	proftrigMinDiffStr = flag.String("proftrigger-min-diff", "1h", "minimum time between triggered profiles")
	proftrigHeapThresh = flag.Int("proftrigger-heap-thresh", 2000000000, "if this many bytes allocated, trigger a profile")
	proftrigRSSThresh  = flag.Int("proftrigger-rss-thresh", 0, "if the process uses this many bytes of RSS memory, trigger a profile. 0 to disable")
)

func main() {
	flag.Parse()

	// if the user just wants the version, give it and exit
	if *showVersion {
		fmt.Printf("hitcounter (version: %s - runtime: %s)\n", version, runtime.Version())
		return
	}

	// Only try and parse the conf file if it exists
	path := ""
	if _, err := os.Stat(*confFile); err == nil {
		path = *confFile
	}
	config, err := globalconf.NewWithOptions(&globalconf.Options{
		Filename:  path,
		EnvPrefix: "HC_",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: configuration file error: %s", err)
		os.Exit(1)
	}

	api.ConfigSetup()
	counter.ConfigSetup()
	backend.ConfigSetup()
	statsConfig.ConfigSetup()
	jaeger.ConfigSetup()

	config.ParseAll()

	/***********************************
		Set up Logger
	***********************************/
	if err := logger.Setup(*logLevel, ""); err != nil {
		log.Fatal(err)
	}
	log.Infof("logging level set to '%s'", *logLevel)

	/***********************************
		Validate settings
	***********************************/
	if *instance == "" {
		log.Fatal("instance can't be empty")
	}
	m, err := mode.Parse(*modeStr)
	if err != nil {
		log.Fatal(err)
	}
	api.ConfigProcess()
	statsConfig.ConfigProcess(*instance)
	jaeger.ConfigProcess()

	proftrigFreq := dur.MustParseDuration("proftrigger-freq", *proftrigFreqStr)
	proftrigMinDiff := dur.MustParseNDuration("proftrigger-min-diff", *proftrigMinDiffStr)
	if proftrigFreq > 0 {
		errors := make(chan error)
		trigger, err := heap.New(heapTriggerConfig(*proftrigPath, *proftrigHeapThresh, *proftrigRSSThresh, proftrigMinDiff, proftrigFreq), errors)
		if err != nil {
			log.Fatalf("profiletrigger heap: %s", err)
		}
		go func() {
			for e := range errors {
				log.Errorf("profiletrigger heap: %s", e)
			}
		}()
		go trigger.Run()
	}

	/***********************************
		configure Profiling
	***********************************/
	runtime.SetBlockProfileRate(*blockProfileRate)
	runtime.MemProfileRate = *memProfileRate

	/************************************
	    handle interrupt signals
	************************************/
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	/***********************************
		Report Version
	***********************************/
	log.Infof("hitcounter starting in %s mode. version: %s - runtime: %s", m, version, runtime.Version())
	// metric version.%s is the version of hitcounter running.  The metric value is always 1
	hcVersion := stats.NewBool(fmt.Sprintf("version.%s", strings.Replace(version, ".", "_", -1)))
	hcVersion.Set(true)
	// metric mode.%s is the mode the api runs in.  The metric value is always 1
	stats.NewBool(fmt.Sprintf("mode.%s", m)).Set(true)

	/***********************************
		collect stats
	***********************************/
	statsConfig.Start()

	/***********************************
		Initialize tracer
	***********************************/
	tracer, traceCloser, err := jaeger.Get()
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	defer traceCloser.Close()

	/***********************************
		Initialize our store
	***********************************/
	st, err = backend.Open(tracer)
	if err != nil {
		log.Fatalf("failed to initialize store: %s", err)
	}

	/***********************************
		Initialize our API server
	***********************************/
	apiServer, err = api.NewServer(m)
	if err != nil {
		log.Fatalf("Failed to start API. %s", err.Error())
	}

	rand.Seed(time.Now().UnixNano())
	apiServer.BindCounter(counter.New(st, clock.Real{}, counter.SerializeIncrements))
	apiServer.BindTracer(tracer)
	go apiServer.Run()

	/***********************************
		Wait for Shutdown
	***********************************/
	sig := <-sigChan
	log.Infof("Received signal %q. Shutting down", sig)
	shutdown()
}

func shutdown() {
	// stop API
	apiServer.Stop()

	log.Info("closing store")
	st.Stop()
	log.Info("terminating.")
}

// heapTriggerConfig builds the profiletrigger settings. minDiff and freq are in seconds.
func heapTriggerConfig(path string, heapThresh, rssThresh int, minDiff, freq uint32) heap.Config {
	return heap.Config{
		Path:        path,
		ThreshHeap:  heapThresh,
		ThreshRSS:   rssThresh,
		MinTimeDiff: time.Duration(minDiff) * time.Second,
		CheckEvery:  time.Duration(freq) * time.Second,
	}
}
