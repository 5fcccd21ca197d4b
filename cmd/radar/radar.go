// Command radar runs the radar service: it pulls TLV frames from a sensor
// or a replay source, runs them through the processing pipeline, records
// results to sqlite, and serves the HTTP API with a live websocket stream.
//
// The sensor exposes two UARTs: -serial names the binary data port and
// -config-port the command CLI used for bring-up. The replay sources
// (-log, -pcap, -udp) drive the same pipeline without hardware.
//
// `radar migrate <action>` manages the database schema without starting
// the service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/corvid-data/proximity.report/internal/api"
	"github.com/corvid-data/proximity.report/internal/config"
	"github.com/corvid-data/proximity.report/internal/db"
	"github.com/corvid-data/proximity.report/internal/mmwave"
	"github.com/corvid-data/proximity.report/internal/mmwave/pipeline"
	"github.com/corvid-data/proximity.report/internal/publish"
	"github.com/corvid-data/proximity.report/internal/serialmux"
	"github.com/corvid-data/proximity.report/internal/source"
	"github.com/corvid-data/proximity.report/internal/units"
	"github.com/corvid-data/proximity.report/internal/version"
)

var (
	listen = flag.String("listen", ":8080", "HTTP listen address")

	serialPort   = flag.String("serial", "", "Serial data port streaming radar frames (e.g. /dev/ttyUSB1)")
	configPort   = flag.String("config-port", "", "Serial configuration port for sensor commands (e.g. /dev/ttyUSB0)")
	sensorConfig = flag.String("sensor-config", "", "Sensor profile streamed to the config port at startup")

	logFile   = flag.String("log", "", "Replay frames from a recorded log file instead of a sensor")
	logPeriod = flag.Duration("log-period", 0, "Delay between replayed frames (0 replays as fast as possible)")

	pcapFile  = flag.String("pcap", "", "Replay frames from a packet capture of the UDP stream")
	pcapPort  = flag.Int("pcap-port", 0, "Replay only packets on this UDP port (0 replays all UDP packets)")
	pcapSpeed = flag.Float64("pcap-speed", 0, "Pace capture replay from packet timestamps (1.0 = real time, 0 = unpaced)")

	udpListen   = flag.String("udp", "", "Receive frames over UDP on this address (e.g. :6843)")
	rcvBuf      = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes (default 4MB)")
	forwardAddr = flag.String("forward-addr", "", "Forward received UDP packets to this address for capture")
	forwardPort = flag.Int("forward-port", 6843, "Port to forward UDP packets to")
	logInterval = flag.Int("log-interval", 60, "Forwarding drop statistics logging interval in seconds")

	recordFile = flag.String("record", "", "Record raw frames from the source to this log file")

	dbFile      = flag.String("db", "proximity_data.db", "Path to the SQLite database file")
	autoMigrate = flag.Bool("auto-migrate", false, "Apply pending schema migrations on startup")

	pipelineConfig = flag.String("pipeline-config", "", "Pipeline tuning file (JSON; built-in defaults when empty)")
	unitsFlag      = flag.String("units", units.MPS, "Display units for API and websocket payloads (mps, mph, kmph)")

	natsURL   = flag.String("nats", "", "Publish frame summaries and warnings to this NATS server")
	redisAddr = flag.String("redis", "", "Cache the latest frame summary in this redis server")

	devMode     = flag.Bool("dev", false, "Run with a mock sensor command port")
	debugLog    = flag.Bool("debug", false, "Enable pipeline diagnostic logging")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

// Publishing identifiers. Subjects become proximity.frames and
// proximity.warnings.
const (
	natsSubjectPrefix = "proximity"
	redisLatestKey    = "proximity:latest"
	redisLatestTTL    = 30 * time.Second
)

// frameSource is the selectable source surface: frames plus cleanup.
type frameSource interface {
	pipeline.FrameSource
	Close() error
}

// selectedSources lists the source-selecting flags that are set. Exactly
// one source may drive the pipeline per invocation.
func selectedSources() []string {
	var names []string
	if *serialPort != "" {
		names = append(names, "-serial")
	}
	if *logFile != "" {
		names = append(names, "-log")
	}
	if *pcapFile != "" {
		names = append(names, "-pcap")
	}
	if *udpListen != "" {
		names = append(names, "-udp")
	}
	return names
}

// newFrameSource builds the source selected by flags. The returned
// description names the source on the run record, e.g. "log:bench.csv".
func newFrameSource(forwarder *source.PacketForwarder) (frameSource, string, error) {
	switch {
	case *serialPort != "":
		src, err := source.NewSerialSource(*serialPort)
		if err != nil {
			return nil, "", err
		}
		return src, "serial:" + *serialPort, nil

	case *logFile != "":
		src, err := source.NewLogSource(*logFile, *logPeriod)
		if err != nil {
			return nil, "", err
		}
		return src, "log:" + *logFile, nil

	case *pcapFile != "":
		src, err := source.NewPCAPSource(*pcapFile, source.PCAPConfig{
			UDPPort:         *pcapPort,
			SpeedMultiplier: *pcapSpeed,
		})
		if err != nil {
			return nil, "", err
		}
		return src, "pcap:" + *pcapFile, nil

	case *udpListen != "":
		src, err := source.NewUDPSource(source.UDPConfig{
			Address:   *udpListen,
			RcvBuf:    *rcvBuf,
			Forwarder: forwarder,
		})
		if err != nil {
			return nil, "", err
		}
		return src, "udp:" + *udpListen, nil
	}
	return nil, "", fmt.Errorf("no frame source selected (use -serial, -log, -pcap or -udp)")
}

// newCommandMux opens the sensor command surface: the real configuration
// UART, a mock that acknowledges every command in dev mode, or a disabled
// mux for replay sources.
func newCommandMux() (serialmux.SerialMuxInterface, error) {
	if *devMode {
		return serialmux.NewMockSerialMux([]byte("Done\n")), nil
	}
	if *configPort != "" {
		return serialmux.NewConfigPortMux(*configPort)
	}
	return serialmux.NewDisabledSerialMux(), nil
}

// configureSensor streams the bring-up profile to the device. Monitor must
// already be running, as acknowledgements arrive via the subscription path.
func configureSensor(ctx context.Context, mux serialmux.SerialMuxInterface, path string) error {
	commands, err := source.LoadConfigCommands(path)
	if err != nil {
		return err
	}
	cfgCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := mux.Configure(cfgCtx, commands); err != nil {
		return err
	}
	log.Printf("sensor configured from %s", path)
	return nil
}

// Main
func main() {
	flag.Parse()

	// schema management subcommand, e.g. `radar migrate up`
	if args := flag.Args(); len(args) > 0 && args[0] == "migrate" {
		db.RunMigrateCommand(args[1:], *dbFile)
		return
	}

	if *showVersion {
		fmt.Printf("radar %s\n", version.String())
		return
	}

	if *listen == "" {
		log.Fatal("HTTP listen address is required")
	}
	if !units.IsValid(*unitsFlag) {
		log.Fatalf("invalid units %q; valid units are: %s", *unitsFlag, units.GetValidUnitsString())
	}
	if names := selectedSources(); len(names) > 1 {
		log.Fatalf("multiple frame sources selected (%s); choose one", strings.Join(names, ", "))
	}
	if *sensorConfig != "" && *configPort == "" && !*devMode {
		log.Fatal("-sensor-config requires -config-port (or -dev)")
	}

	if *debugLog {
		pipeline.SetLogWriters(os.Stderr, os.Stderr, nil)
		mmwave.SetLogWriters(mmwave.LogWriters{Ops: os.Stderr, Diag: os.Stderr})
	} else {
		pipeline.SetLogWriters(os.Stderr, nil, nil)
		mmwave.SetLogWriters(mmwave.LogWriters{Ops: os.Stderr})
	}

	cfg := config.DefaultPipelineConfig()
	if *pipelineConfig != "" {
		loaded, err := config.LoadPipelineConfig(*pipelineConfig)
		if err != nil {
			log.Fatalf("failed to load pipeline config: %v", err)
		}
		cfg = loaded
		log.Printf("loaded pipeline tuning from %s", *pipelineConfig)
	}

	var forwarder *source.PacketForwarder
	if *udpListen != "" && *forwardAddr != "" {
		f, err := source.NewPacketForwarder(*forwardAddr, *forwardPort, time.Duration(*logInterval)*time.Second)
		if err != nil {
			log.Fatalf("failed to create packet forwarder: %v", err)
		}
		defer f.Close()
		forwarder = f
	}

	src, sourceDesc, err := newFrameSource(forwarder)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("reading frames from %s", sourceDesc)

	var frames pipeline.FrameSource = src
	if *recordFile != "" {
		rec, err := source.NewLogRecorder(*recordFile)
		if err != nil {
			log.Fatalf("failed to create frame log: %v", err)
		}
		defer rec.Close()
		frames = &source.RecordingSource{Source: src, Recorder: rec}
		log.Printf("recording raw frames to %s", *recordFile)
	}

	radarSerial, err := newCommandMux()
	if err != nil {
		log.Fatalf("failed to open config port: %v", err)
	}
	defer radarSerial.Close()

	database, err := db.NewDBWithMigrationCheck(*dbFile, *autoMigrate)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	recorder, err := db.NewRecorder(database, sourceDesc, cfg)
	if err != nil {
		log.Fatalf("failed to create run: %v", err)
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			log.Printf("failed to finish run: %v", err)
		}
	}()
	log.Printf("recording run %s", recorder.Run().ID)

	// Create a wait group for the serial monitor, pipeline, hub, and HTTP
	// server routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if forwarder != nil {
		forwarder.Start(ctx)
	}

	// a blocked serial or UDP read does not notice context cancellation;
	// closing the source unblocks it
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		if err := src.Close(); err != nil {
			log.Printf("failed to close frame source: %v", err)
		}
	}()

	hub := api.NewHub(*unitsFlag)
	sinks := []pipeline.ResultSink{recorder, hub}

	if *natsURL != "" {
		pub := publish.NewPublisher(natsSubjectPrefix)
		if err := pub.Connect(*natsURL); err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}
	if *redisAddr != "" {
		cache := publish.NewCache(redisLatestKey, redisLatestTTL)
		if err := cache.Connect(ctx, *redisAddr); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer cache.Close()
		sinks = append(sinks, cache)
	}

	runtime := pipeline.NewRuntime(pipeline.New(cfg), sinks...)

	// run the monitor routine to manage IO on the config port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := radarSerial.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// bring the sensor up before frames flow
	if *sensorConfig != "" {
		if err := configureSensor(ctx, radarSerial, *sensorConfig); err != nil {
			log.Fatalf("sensor bring-up failed: %v", err)
		}
	}

	// pump frames from the source through the pipeline and out to the sinks
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runtime.Run(ctx, frames); err != nil && err != context.Canceled {
			log.Printf("pipeline stopped: %v", err)
		}
		log.Print("pipeline routine terminated")
	}()

	// websocket hub routine owns the client set
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
		log.Print("websocket hub stopped")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		// mount the API handlers and the admin/debug routes
		mux := api.NewServer(radarSerial, database, runtime, hub, *unitsFlag).ServeMux()

		radarSerial.AttachAdminRoutes(mux)
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			log.Printf("Starting HTTP server on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Create a shutdown context with a shorter timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
