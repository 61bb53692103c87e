package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/tudogrid/grid"
)

// serviceHistoryTicks bounds the tick plot served over HTTP.
const serviceHistoryTicks = 3000

// App encapsulates the application state and dependencies
type App struct {
	Config     *grid.Config
	Tracker    *grid.StateTracker
	Mapper     *grid.Mapper
	MQTTClient *grid.MQTTClient
	Publisher  *grid.Publisher
	Hub        *grid.Hub
	History    *grid.TickHistory

	// CLI Flags (effectively dependencies)
	ConfigFile   string
	ReplayFile   string
	OutputFile   string
	RenderFormat string
	PlotFile     string
	HttpPort     int
	MqttMode     bool
	HttpMode     bool

	publishFailures int
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		Tracker: grid.NewStateTracker(),
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.ReplayFile = opts.ReplayFile
	a.OutputFile = opts.OutputFile
	a.RenderFormat = opts.RenderFormat
	a.PlotFile = opts.PlotFile
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadConfig reads the config file. A missing file at the default path
// falls back to DefaultConfig; an explicitly named file must exist.
func (a *App) loadConfig() (*grid.Config, error) {
	path := a.ConfigFile
	if path == "" {
		path = "config.yaml"
	}
	config, err := grid.LoadConfig(path)
	if err == nil {
		log.Printf("Loaded config from %s", path)
		return config, nil
	}
	if path == "config.yaml" {
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			log.Printf("No config.yaml found, using defaults")
			return grid.DefaultConfig(), nil
		}
	}
	return nil, fmt.Errorf("failed to load config: %w (looked at %s)", err, path)
}

// setup loads the config and builds the mapper. It is idempotent so tests can
// prepare an App by hand.
func (a *App) setup() error {
	if a.Config == nil {
		config, err := a.loadConfig()
		if err != nil {
			return err
		}
		a.Config = config
	}
	if a.Tracker == nil {
		a.Tracker = grid.NewStateTracker()
	}
	if a.Mapper == nil {
		m, err := grid.NewMapper(a.Config, a.Tracker)
		if err != nil {
			return err
		}
		a.Mapper = m
		g := a.Config.Grid
		log.Printf("[MAP] %dx%d cells at %.2f cm, run %s", g.Width, g.Height, g.CellSize, m.RunID())
	}
	return nil
}

// wireOutputs connects the mapper's per-tick and per-snapshot callbacks to
// the tick history, publisher and websocket hub, whichever are present.
func (a *App) wireOutputs() {
	a.Mapper.OnTick = func(stats grid.TickStats) {
		if a.History != nil {
			a.History.Record(stats)
		}
	}

	a.Mapper.OnTransform = func(msg grid.TransformMessage) {
		if a.Publisher == nil || !a.Config.Publish.Transform {
			return
		}
		a.reportPublish("transform", a.Publisher.PublishTransform(msg))
	}

	a.Mapper.OnSnapshot = func(snap *grid.Snapshot, stats grid.MapStats) {
		if a.Publisher != nil {
			a.reportPublish("snapshot", a.Publisher.PublishSnapshot(snap, stats))
		}
		if a.Hub != nil && a.Hub.Clients() > 0 {
			var update grid.LiveUpdate
			a.Mapper.View(func(om *grid.OccupancyMap) {
				update = grid.NewLiveUpdate(om, stats)
			})
			if err := a.Hub.BroadcastJSON(update); err != nil {
				log.Printf("[WS] Error broadcasting snapshot: %v", err)
			}
		}
	}
}

// reportPublish logs the first publish failure of a streak and every 100th
// after it, so a broker outage does not flood the log at the tick rate.
func (a *App) reportPublish(what string, err error) {
	if err == nil {
		if a.publishFailures > 0 {
			log.Printf("[MQTT] Publishing recovered after %d failures", a.publishFailures)
		}
		a.publishFailures = 0
		return
	}
	if a.publishFailures%100 == 0 {
		log.Printf("[MQTT] Error publishing %s: %v", what, err)
	}
	a.publishFailures++
}

// RunReplay maps a recorded session and renders the final map to OutputFile.
func (a *App) RunReplay() error {
	if err := a.setup(); err != nil {
		return err
	}

	if a.PlotFile != "" {
		a.History = grid.NewTickHistory(0)
	}
	a.wireOutputs()

	stats, err := grid.ReplayFile(a.ReplayFile, a.Mapper)
	if err != nil {
		return err
	}
	mapStats := a.Mapper.Stats()
	fmt.Printf("Replayed %s: %d lines, %d poses, %d readings, %d ticks, %d skipped\n",
		a.ReplayFile, stats.Lines, stats.Poses, stats.Readings, stats.Ticks, stats.Skipped)
	fmt.Printf("Map: %d free, %d occupied, %d unknown\n", mapStats.Free, mapStats.Occupied, mapStats.Unknown)

	if err := a.renderTo(a.OutputFile); err != nil {
		return err
	}
	if a.History != nil {
		if err := a.History.Save(a.PlotFile); err != nil {
			return err
		}
		fmt.Printf("Tick plot written to %s\n", a.PlotFile)
	}
	return nil
}

// renderTo writes the current map to path in the configured format
func (a *App) renderTo(path string) error {
	if path == "" {
		return fmt.Errorf("no output file given")
	}
	palette, err := a.Config.Render.Palette()
	if err != nil {
		return err
	}

	var robot *grid.Pose
	if in := a.Tracker.Snapshot(); in.HasPose {
		p := in.Pose
		robot = &p
	}

	format := strings.ToLower(a.RenderFormat)
	if format == "" {
		format = "raster"
		if strings.EqualFold(filepath.Ext(path), ".svg") {
			format = "svg"
		}
	}

	switch format {
	case "raster":
		r, err := grid.NewRasterRendererFromConfig(a.Config.Render)
		if err != nil {
			return err
		}
		r.Robot = robot
		a.Mapper.View(func(om *grid.OccupancyMap) {
			err = r.SavePNG(om, path)
		})
		if err != nil {
			return err
		}
	case "svg", "vector-png":
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		defer f.Close()

		r := grid.NewVectorRenderer(palette)
		r.Robot = robot
		a.Mapper.View(func(om *grid.OccupancyMap) {
			if format == "svg" {
				err = r.RenderToSVG(f, om)
			} else {
				err = r.RenderToPNG(f, om)
			}
		})
		if err != nil {
			return fmt.Errorf("rendering %s: %w", format, err)
		}
	default:
		return fmt.Errorf("unknown render format %q (want raster, svg or vector-png)", a.RenderFormat)
	}

	fmt.Printf("Map written to %s\n", path)
	return nil
}

// RunService runs the mapping loop with MQTT input/output and the HTTP server,
// whichever are enabled, until SIGINT or SIGTERM.
func (a *App) RunService() error {
	fmt.Println("Starting tudogrid service...")

	if err := a.setup(); err != nil {
		return err
	}

	if a.MqttMode {
		mqttClient, err := grid.InitMQTT(a.Config, a.Tracker)
		if err != nil {
			return fmt.Errorf("failed to initialize MQTT: %w", err)
		}
		if mqttClient == nil {
			return fmt.Errorf("MQTT broker not configured in config.yaml")
		}
		mqttClient.SetErrorHandler(func(topic string, err error) {
			log.Printf("[MQTT] Dropped message on %s: %v", topic, err)
		})
		a.MQTTClient = mqttClient
		a.Publisher = grid.NewPublisher(mqttClient.GetClient(), a.Config)
		fmt.Println("MQTT map publisher initialized")
	}

	var srv *http.Server
	if a.HttpMode {
		a.Hub = grid.NewHub()
		a.History = grid.NewTickHistory(serviceHistoryTicks)
		srv = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
			Handler:           newHTTPServer(a.Mapper, a.Hub, a.History, a.Config),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("[HTTP] Starting server on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	a.wireOutputs()
	a.printServiceInfo()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Mapper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	fmt.Println("\nShutting down service...")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}
	if a.Hub != nil {
		a.Hub.Close()
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Println("Service stopped")
	return nil
}

func (a *App) printServiceInfo() {
	fmt.Println("\nService Running")
	fmt.Println("===============")
	fmt.Printf("Tick rate: %.1f Hz, snapshot every %d ticks\n",
		a.Config.Loop.TickRate, a.Config.Loop.SnapshotInterval)

	if a.MqttMode {
		fmt.Println("\nMQTT:")
		fmt.Println("  Subscribed topics:")
		fmt.Printf("    - %s (pose)\n", a.Config.Topics.Pose)
		fmt.Printf("    - %s (distance)\n", a.Config.Topics.Distance)
		fmt.Printf("  Publishing: %s, %s, %s\n",
			a.Publisher.TransformTopic(), a.Publisher.MapTopic(), a.Publisher.StatsTopic())
	}

	if a.HttpMode {
		fmt.Printf("\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Println("  GET  /health        - Health check")
		fmt.Println("  GET  /map.png       - Raster map (?renderer=vector for the canvas renderer)")
		fmt.Println("  GET  /map.svg       - Vector map")
		fmt.Println("  GET  /map.geojson   - Occupied and free cells as GeoJSON")
		fmt.Println("  GET  /snapshot.json - Full point list")
		fmt.Println("  GET  /stats         - Cell counts and log-odds summary")
		fmt.Println("  GET  /ticks.png     - Per-tick activity plot")
		fmt.Println("  GET  /ws            - Live snapshot stream")
		fmt.Println("  POST /reset         - Clear the map")
	}

	fmt.Println("\nPress Ctrl+C to stop")
}
