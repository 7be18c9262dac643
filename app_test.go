package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hampallop/spray-wall/wall"
)

// Helper function to write a test wall photo to disk
func writeTestWall(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 160))
	for y := 0; y < 160; y++ {
		for x := 0; x < 120; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 90, G: 80, B: 70, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding wall: %v", err)
	}
	path := filepath.Join(dir, "wall.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("writing wall: %v", err)
	}
	return path
}

// newTestApp returns an App that reads no config from the working directory
func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp()
	app.Out = &out
	app.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	return app, &out
}

func TestNewApp(t *testing.T) {
	app := NewApp()
	if app == nil {
		t.Fatal("NewApp returned nil")
		return
	}
	if app.Status == nil {
		t.Error("Status should be initialized")
	}
	if app.Out == nil {
		t.Error("Out should default to stdout")
	}
}

func TestApplyOptions(t *testing.T) {
	app := NewApp()
	opts := AppOptions{
		ConfigFile: "gym.yaml",
		Image:      "wall.jpg",
		Holds:      "?holds=%5B%5D",
		OutputFile: "out.png",
		BaseURL:    "https://wall.example/",
		HttpPort:   8080,
		MqttMode:   true,
		Mobile:     true,
	}

	app.ApplyOptions(opts)

	if app.ConfigFile != "gym.yaml" {
		t.Errorf("ConfigFile = %s, want gym.yaml", app.ConfigFile)
	}
	if app.Image != "wall.jpg" {
		t.Errorf("Image = %s, want wall.jpg", app.Image)
	}
	if app.Holds != "?holds=%5B%5D" {
		t.Errorf("Holds = %s", app.Holds)
	}
	if app.OutputFile != "out.png" {
		t.Errorf("OutputFile = %s, want out.png", app.OutputFile)
	}
	if app.BaseURL != "https://wall.example/" {
		t.Errorf("BaseURL = %s", app.BaseURL)
	}
	if app.HttpPort != 8080 {
		t.Errorf("HttpPort = %d, want 8080", app.HttpPort)
	}
	if !app.MqttMode || !app.Mobile {
		t.Error("MqttMode and Mobile should be true")
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "wall:\n  title: Board\n  image: from-file.jpg\nhttp:\n  port: 4000\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	app := NewApp()
	app.ConfigFile = path
	app.Image = "from-flag.jpg"
	app.HttpPort = 5000
	app.BaseURL = "https://wall.example/"

	if err := app.loadConfig(); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if app.Config.Wall.Title != "Board" {
		t.Errorf("Title = %s, want Board", app.Config.Wall.Title)
	}
	if app.Config.Wall.Image != "from-flag.jpg" {
		t.Errorf("Image = %s, want from-flag.jpg", app.Config.Wall.Image)
	}
	if app.Config.HTTP.Port != 5000 {
		t.Errorf("Port = %d, want 5000", app.Config.HTTP.Port)
	}
	if app.baseURL() != "https://wall.example/" {
		t.Errorf("baseURL = %s", app.baseURL())
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	app, _ := newTestApp(t)
	if err := app.loadConfig(); err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if app.Config.HTTP.Port != 3000 {
		t.Errorf("Port = %d, want 3000", app.Config.HTTP.Port)
	}
	if !strings.HasSuffix(app.baseURL(), ":3000/") {
		t.Errorf("baseURL = %s, want the local address on port 3000", app.baseURL())
	}
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	app, _ := newTestApp(t)
	app.HttpPort = 99999
	if err := app.loadConfig(); err == nil {
		t.Error("expected validation error for port 99999")
	}
}

func TestRunExport(t *testing.T) {
	dir := t.TempDir()
	app, out := newTestApp(t)
	app.Image = writeTestWall(t, dir)
	app.Holds = "http://host:3000/?holds=" + oneHold
	app.OutputFile = filepath.Join(dir, "problem.png")

	if err := app.RunExport(); err != nil {
		t.Fatalf("RunExport: %v", err)
	}
	if !strings.Contains(out.String(), "Saved") || !strings.Contains(out.String(), "120x160") {
		t.Errorf("output = %q", out.String())
	}

	holds, err := wall.ExtractLayoutFile(app.OutputFile)
	if err != nil {
		t.Fatalf("ExtractLayoutFile: %v", err)
	}
	if len(holds) != 1 || holds[0].ID != "a" {
		t.Errorf("embedded layout = %+v, want hold a", holds)
	}
}

func TestRunExport_InvalidLayout(t *testing.T) {
	dir := t.TempDir()
	app, _ := newTestApp(t)
	app.Image = writeTestWall(t, dir)
	app.Holds = "?holds=%5B%7B%7D%5D"
	app.OutputFile = filepath.Join(dir, "problem.png")

	if err := app.RunExport(); err == nil {
		t.Fatal("expected an error for an invalid layout")
	}
	if _, err := os.Stat(app.OutputFile); !os.IsNotExist(err) {
		t.Error("no output file should be written for an invalid layout")
	}
}

func TestRunExport_MissingImage(t *testing.T) {
	app, _ := newTestApp(t)
	app.Image = filepath.Join(t.TempDir(), "nope.jpg")
	app.OutputFile = filepath.Join(t.TempDir(), "problem.png")
	if err := app.RunExport(); err == nil {
		t.Error("expected an error for a missing wall photo")
	}
}

func TestRunDecode(t *testing.T) {
	app, out := newTestApp(t)
	if err := app.RunDecode("?holds=" + oneHold); err != nil {
		t.Fatalf("RunDecode: %v", err)
	}
	s := out.String()
	for _, want := range []string{"1 holds", "start", "States: start=1 intermediate=0 finish=0", "Query:  ?holds=" + oneHold} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestRunDecode_ExportedFile(t *testing.T) {
	dir := t.TempDir()
	exporter, _ := newTestApp(t)
	exporter.Image = writeTestWall(t, dir)
	exporter.Holds = oneHold
	exporter.OutputFile = filepath.Join(dir, "problem.png")
	if err := exporter.RunExport(); err != nil {
		t.Fatalf("RunExport: %v", err)
	}

	app, out := newTestApp(t)
	if err := app.RunDecode(exporter.OutputFile); err != nil {
		t.Fatalf("RunDecode: %v", err)
	}
	if !strings.Contains(out.String(), "1 holds") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunDecode_Invalid(t *testing.T) {
	app, _ := newTestApp(t)
	if err := app.RunDecode("?holds=%7Bbroken"); err == nil {
		t.Error("expected error for a broken layout")
	}
}

func TestRunCopyLink(t *testing.T) {
	app, out := newTestApp(t)
	app.BaseURL = "https://wall.example/"
	app.Holds = "?holds=" + oneHold

	// Succeeds whether or not a clipboard is available; the link is
	// printed either way.
	if err := app.RunCopyLink(); err != nil {
		t.Fatalf("RunCopyLink: %v", err)
	}
	if !strings.Contains(out.String(), "https://wall.example/?holds="+oneHold) {
		t.Errorf("output = %q, want the share link", out.String())
	}
}

func TestRunCopyLink_InvalidLayout(t *testing.T) {
	app, _ := newTestApp(t)
	app.Holds = "?holds=nope"
	if err := app.RunCopyLink(); err == nil {
		t.Error("expected error for an invalid layout")
	}
}

// startServe runs App.serve on a loopback listener and returns its base URL
// and a function that stops it and returns serve's error
func startServe(t *testing.T, app *App) (string, func() error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, ln) }()

	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(10 * time.Second):
			t.Fatal("serve did not stop")
			return nil
		}
	}
	return fmt.Sprintf("http://%s", ln.Addr()), stop
}

func TestServe_StartupShutdown(t *testing.T) {
	app, out := newTestApp(t)
	app.Image = writeTestWall(t, t.TempDir())

	base, stop := startServe(t, app)

	resp, err := http.Get(base + "/health")
	if err != nil {
		_ = stop()
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if err := stop(); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"hasImage":true`) {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}
	if !strings.Contains(out.String(), "Stopped") {
		t.Errorf("output = %q, want a shutdown notice", out.String())
	}
}

func TestServe_WithoutImage(t *testing.T) {
	app, _ := newTestApp(t)
	app.Image = filepath.Join(t.TempDir(), "nope.jpg")

	base, stop := startServe(t, app)
	resp, err := http.Get(base + "/wall-image")
	if err != nil {
		_ = stop()
		t.Fatalf("GET /wall-image: %v", err)
	}
	_ = resp.Body.Close()
	if err := stop(); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServe_MqttPublishesEdits(t *testing.T) {
	app, out := newTestApp(t)
	app.MqttMode = true
	mock := wall.NewMockClient()
	mock.SetConnected(true)
	app.Board = wall.NewBoardWithClient(mock, wall.MQTTConfig{PublishPrefix: "gym"}, app.Status)

	base, stop := startServe(t, app)

	body := `{"holds":"%5B%5D","adding":true,"event":{"type":"click","clientX":50,"clientY":50},"rect":{"left":0,"top":0,"width":100,"height":100}}`
	resp, err := http.Post(base+"/api/events", "application/json", strings.NewReader(body))
	if err != nil {
		_ = stop()
		t.Fatalf("POST /api/events: %v", err)
	}
	_ = resp.Body.Close()

	if err := stop(); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	msgs := mock.Published()
	if len(msgs) != 1 || msgs[0].Topic != "gym/problem" {
		t.Fatalf("published = %+v, want one message on gym/problem", msgs)
	}
	if !strings.Contains(out.String(), "gym/problem") {
		t.Errorf("banner should name the publish topic, got %q", out.String())
	}
	if mock.IsConnected() {
		t.Error("board should disconnect on shutdown")
	}
}

func TestServe_MqttWithoutBroker(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	app, _ := newTestApp(t)
	app.MqttMode = true

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()

	err = app.serve(context.Background(), ln)
	if err == nil || !strings.Contains(err.Error(), "not configured") {
		t.Errorf("err = %v, want broker not configured", err)
	}
}
