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

// AppOptions carries the parsed command line
type AppOptions struct {
	ConfigFile string
	Image      string
	Holds      string
	OutputFile string
	BaseURL    string
	DecodeFile string
	HttpPort   int
	Serve      bool
	MqttMode   bool
	Export     bool
	CopyLink   bool
	Mobile     bool
}

// Application is implemented by App; run only talks to this interface so
// flag handling can be tested without side effects
type Application interface {
	ApplyOptions(opts AppOptions)
	RunServe() error
	RunExport() error
	RunCopyLink() error
	RunDecode(source string) error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(args []string, out io.Writer, app Application) error {
	fs := flag.NewFlagSet("spraywall", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file (optional)")
	fs.BoolVar(&opts.Serve, "serve", false, "Run the web annotator")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Mirror layouts to an LED board over MQTT (with --serve)")
	fs.IntVar(&opts.HttpPort, "http-port", 0, "HTTP server port (default from config, 3000)")
	fs.StringVar(&opts.Image, "image", "", "Wall photo path or http(s) URL (overrides config)")
	fs.BoolVar(&opts.Export, "export", false, "Render the layout in --holds onto the wall photo and exit")
	fs.StringVar(&opts.Holds, "holds", "", "Layout as a share link, ?holds= query or encoded value")
	fs.StringVar(&opts.OutputFile, "output", "climbing-problem.png", "Output file for --export")
	fs.BoolVar(&opts.CopyLink, "copy-link", false, "Copy the share link for --holds to the clipboard and exit")
	fs.StringVar(&opts.BaseURL, "base-url", "", "Origin used for share links (default: local network address)")
	fs.StringVar(&opts.DecodeFile, "decode", "", "Print the layout in an exported PNG or share link and exit")
	fs.BoolVar(&opts.Mobile, "mobile", false, "Size markers for a mobile viewport in --export")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "spraywall version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.DecodeFile != "":
		return app.RunDecode(opts.DecodeFile)
	case opts.Export:
		return app.RunExport()
	case opts.CopyLink:
		return app.RunCopyLink()
	case opts.Serve || opts.MqttMode:
		return app.RunServe()
	}

	fmt.Fprintln(out, "Use --serve to run the web annotator")
	fmt.Fprintln(out, "Use --serve --mqtt to also light the problem on an LED board")
	fmt.Fprintln(out, "Use --export --holds=LINK to save a problem image")
	fmt.Fprintln(out, "Use --copy-link --holds=LINK to copy a share link")
	fmt.Fprintln(out, "Use --decode=FILE|LINK to print a layout")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - wall photo, marker look, HTTP and MQTT settings")
	return nil
}
