package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile   string
	ReplayFile   string
	OutputFile   string
	RenderFormat string
	PlotFile     string
	HttpPort     int
	MqttMode     bool
	HttpMode     bool
}

// Runner is the part of App that main drives; tests substitute a fake.
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunReplay() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("tudogrid: %v", err)
	}
}

// run parses args and dispatches to the selected mode. Replay takes
// precedence over service mode.
func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("tudogrid", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.ReplayFile, "replay", "", "Replay a JSONL recording of pose/distance messages and render the result")
	fs.StringVar(&opts.OutputFile, "output", "grid-map.png", "Output file for --replay mode")
	fs.StringVar(&opts.RenderFormat, "format", "raster", "Render format for --replay: raster, svg, or vector-png")
	fs.StringVar(&opts.PlotFile, "plot", "", "Also write a per-tick activity plot for --replay (format from extension)")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Subscribe to pose/distance topics and publish the map over MQTT")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP server for map views and the live websocket")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port (default 8080)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "tudogrid version: %s\n", Version)
	app.ApplyOptions(opts)

	if opts.ReplayFile != "" {
		return app.RunReplay()
	}

	if opts.MqttMode || opts.HttpMode {
		return app.RunService()
	}

	fmt.Fprintln(out, "tudogrid: occupancy grid mapper")
	fmt.Fprintln(out, "Use --mqtt to map from live pose/distance topics")
	fmt.Fprintln(out, "Use --http to serve the map (PNG, SVG, GeoJSON, snapshot, websocket)")
	fmt.Fprintln(out, "Use --mqtt --http to run both together")
	fmt.Fprintln(out, "Use --replay=FILE --output=map.png to map a recording offline")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - grid size, sensor model, sensor mounts, MQTT settings")
	return nil
}
