package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hampallop/spray-wall/wall"
)

// shutdownTimeout bounds how long in-flight requests get on SIGINT/SIGTERM
const shutdownTimeout = 5 * time.Second

// App encapsulates the application state and dependencies
type App struct {
	Config    *wall.Config
	Wall      *wall.WallImage
	Status    *wall.StatusTracker
	Board     *wall.Board
	Publisher *wall.Publisher
	Out       io.Writer

	// CLI Flags (effectively dependencies)
	ConfigFile string
	Image      string
	Holds      string
	OutputFile string
	BaseURL    string
	HttpPort   int
	MqttMode   bool
	Mobile     bool
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		Status: wall.NewStatusTracker(),
		Out:    os.Stdout,
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.Image = opts.Image
	a.Holds = opts.Holds
	a.OutputFile = opts.OutputFile
	a.BaseURL = opts.BaseURL
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.Mobile = opts.Mobile
}

// loadConfig reads the optional config file and layers the flags on top
func (a *App) loadConfig() error {
	if a.Config != nil {
		return nil
	}
	config, found, err := wall.LoadConfigOptional(a.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if found {
		log.Printf("Loaded config from %s", a.ConfigFile)
	}

	if a.Image != "" {
		config.Wall.Image = a.Image
	}
	if a.HttpPort != 0 {
		config.HTTP.Port = a.HttpPort
	}
	if a.BaseURL != "" {
		config.HTTP.BaseURL = a.BaseURL
	}
	if err := config.Validate(); err != nil {
		return err
	}
	a.Config = config
	return nil
}

// loadWall loads the wall photo named in the config. Its natural size
// replaces the configured layout size.
func (a *App) loadWall(ctx context.Context) error {
	if a.Wall != nil {
		return nil
	}
	img, err := wall.LoadWallImage(ctx, a.Config.Wall.Image)
	if err != nil {
		return err
	}
	a.Wall = img
	a.Config.Wall.Size = img.Size
	log.Printf("[WALL] loaded %s (%dx%d %s)", a.Config.Wall.Image, img.Size.Width, img.Size.Height, img.Format)
	return nil
}

// layout decodes the --holds flag. Unlike a browser navigation, an invalid
// layout given on the command line is an error.
func (a *App) layout() (wall.HoldCollection, error) {
	return wall.Decode(wall.ParamFromURL(a.Holds))
}

func (a *App) viewport() wall.Viewport {
	return wall.Viewport{Mobile: a.Mobile}
}

// baseURL is the configured public origin, or the local network address
func (a *App) baseURL() string {
	if a.Config.HTTP.BaseURL != "" {
		return a.Config.HTTP.BaseURL
	}
	return wall.LocalURL(a.Config.HTTP.Port) + "/"
}

// RunExport renders --holds onto the wall photo and writes a PNG
func (a *App) RunExport() error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	holds, err := a.layout()
	if err != nil {
		return err
	}
	if err := a.loadWall(context.Background()); err != nil {
		return err
	}

	output := a.OutputFile
	if output == "" {
		output = wall.ExportFilename
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := wall.ExportPNG(f, a.Wall, holds, a.Config.Markers, a.viewport()); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}

	success(a.Out, "Saved %s (%dx%d, %d holds)", output, a.Wall.Size.Width, a.Wall.Size.Height, len(holds))
	return nil
}

// RunCopyLink copies the share link for --holds to the clipboard. When the
// clipboard cannot be used the link is printed for manual copying.
func (a *App) RunCopyLink() error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	holds, err := a.layout()
	if err != nil {
		return err
	}

	link, err := wall.CopyLink(a.baseURL(), holds)
	switch {
	case errors.Is(err, wall.ErrClipboardUnavailable):
		warning(a.Out, "Could not copy to the clipboard (%v). Copy this link manually:", err)
		fmt.Fprintln(a.Out, link)
		return nil
	case err != nil:
		return err
	}
	success(a.Out, "Link copied to clipboard")
	fmt.Fprintln(a.Out, link)
	return nil
}

// RunDecode prints the layout carried by an exported PNG, a share link or
// an encoded value
func (a *App) RunDecode(source string) error {
	var (
		holds wall.HoldCollection
		err   error
	)
	if _, statErr := os.Stat(source); statErr == nil {
		holds, err = wall.ExtractLayoutFile(source)
	} else {
		holds, err = wall.ExtractLayout([]byte(source))
	}
	if err != nil {
		return err
	}

	info(a.Out, "%d holds", len(holds))
	for i, h := range holds {
		fmt.Fprintf(a.Out, "  %2d  %-12s x=%6.2f%%  y=%6.2f%%  %s\n", i+1, h.State, h.X, h.Y, h.ID)
	}

	counts := holds.Count()
	parts := make([]string, 0, len(counts))
	for _, s := range wall.HoldStates {
		parts = append(parts, fmt.Sprintf("%s=%d", s, counts[s]))
	}
	fmt.Fprintf(a.Out, "States: %s\n", strings.Join(parts, " "))
	fmt.Fprintf(a.Out, "Query:  %s\n", wall.ShareQuery(holds))
	return nil
}

// RunServe runs the web annotator until SIGINT or SIGTERM
func (a *App) RunServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := a.listen()
	if err != nil {
		return err
	}
	return a.serve(ctx, ln)
}

func (a *App) listen() (net.Listener, error) {
	if err := a.loadConfig(); err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("0.0.0.0:%d", a.Config.HTTP.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return ln, nil
}

// serve wires the board and HTTP server and blocks until ctx is done
func (a *App) serve(ctx context.Context, ln net.Listener) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	if err := a.loadWall(ctx); err != nil {
		log.Printf("[WALL] Warning: %v; serving without a wall photo", err)
	}

	if a.MqttMode {
		if a.Board == nil {
			board, err := wall.NewBoard(a.Config.MQTT, a.Status)
			if err != nil {
				return fmt.Errorf("initializing MQTT: %w", err)
			}
			if board == nil {
				return fmt.Errorf("MQTT broker not configured (set mqtt.broker or MQTT_BROKER)")
			}
			a.Board = board
		}
		a.Publisher = wall.NewPublisher(a.Board)
		fmt.Fprintln(a.Out, "MQTT board publisher initialized")
	}

	srv := &http.Server{
		Handler:           newHTTPServer(a.Config, a.Wall, a.Status, a.Publisher),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[HTTP] Starting server on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	a.printBanner(ln.Addr())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
	}

	fmt.Fprintln(a.Out, "\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[HTTP] shutdown: %v", err)
	}
	if a.Board != nil {
		a.Board.Disconnect()
	}
	fmt.Fprintln(a.Out, "Stopped")
	return nil
}

func (a *App) printBanner(addr net.Addr) {
	port := a.Config.HTTP.Port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}

	fmt.Fprintf(a.Out, "\n%s\n", a.Config.Wall.Title)
	fmt.Fprintln(a.Out, strings.Repeat("=", len(a.Config.Wall.Title)))
	fmt.Fprintf(a.Out, "Local:    http://localhost:%d\n", port)
	info(a.Out, "Local IP: %s", wall.LocalURL(port))

	if a.MqttMode && a.Board != nil {
		fmt.Fprintln(a.Out, "\nMQTT:")
		fmt.Fprintf(a.Out, "  Publishing to: %s\n", a.Board.Topic(wall.TopicProblem))
		fmt.Fprintf(a.Out, "  Board status:  %s\n", a.Board.Topic(wall.TopicStatus))
	}

	fmt.Fprintf(a.Out, "\nHTTP endpoints (port %d):\n", port)
	fmt.Fprintln(a.Out, "  GET  /                     - Annotator")
	fmt.Fprintln(a.Out, "  GET  /wall-image           - Wall photo")
	fmt.Fprintln(a.Out, "  GET  /overlay.svg          - Marker overlay")
	fmt.Fprintf(a.Out, "  GET  /%s  - Problem image\n", wall.ExportFilename)
	fmt.Fprintln(a.Out, "  POST /api/events           - Annotator events")
	fmt.Fprintln(a.Out, "  GET  /api/holds            - Validate a layout")
	fmt.Fprintln(a.Out, "  GET  /health               - Health check")
	fmt.Fprintln(a.Out, "\nPress Ctrl+C to stop")
}
