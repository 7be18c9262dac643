package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type mockApp struct {
	opts   AppOptions
	called map[string]bool
	sArg   string
	err    error
}

func newMockApp() *mockApp {
	return &mockApp{
		called: make(map[string]bool),
	}
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }
func (m *mockApp) RunServe() error              { m.called["RunServe"] = true; return m.err }
func (m *mockApp) RunExport() error             { m.called["RunExport"] = true; return m.err }
func (m *mockApp) RunCopyLink() error           { m.called["RunCopyLink"] = true; return m.err }
func (m *mockApp) RunDecode(s string) error {
	m.called["RunDecode"] = true
	m.sArg = s
	return m.err
}

func TestRun_Flags(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedCalled string
		verifyOpts     func(*testing.T, AppOptions)
	}{
		{
			name:           "Serve",
			args:           []string{"--serve", "--http-port", "9090", "--image", "wall.jpg"},
			expectedCalled: "RunServe",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.HttpPort != 9090 {
					t.Errorf("expected HttpPort 9090, got %d", opts.HttpPort)
				}
				if opts.Image != "wall.jpg" {
					t.Errorf("expected Image wall.jpg, got %s", opts.Image)
				}
				if opts.MqttMode {
					t.Error("expected MqttMode false")
				}
			},
		},
		{
			name:           "MqttImpliesServe",
			args:           []string{"--mqtt"},
			expectedCalled: "RunServe",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if !opts.MqttMode {
					t.Error("expected MqttMode true")
				}
			},
		},
		{
			name:           "Export",
			args:           []string{"--export", "--holds", "?holds=%5B%5D", "--output", "out.png", "--mobile"},
			expectedCalled: "RunExport",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.Holds != "?holds=%5B%5D" {
					t.Errorf("expected Holds ?holds=%%5B%%5D, got %s", opts.Holds)
				}
				if opts.OutputFile != "out.png" {
					t.Errorf("expected OutputFile out.png, got %s", opts.OutputFile)
				}
				if !opts.Mobile {
					t.Error("expected Mobile true")
				}
			},
		},
		{
			name:           "CopyLink",
			args:           []string{"--copy-link", "--base-url", "https://wall.example/"},
			expectedCalled: "RunCopyLink",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.BaseURL != "https://wall.example/" {
					t.Errorf("expected BaseURL https://wall.example/, got %s", opts.BaseURL)
				}
			},
		},
		{
			name:           "DecodeWinsOverExport",
			args:           []string{"--decode", "problem.png", "--export"},
			expectedCalled: "RunDecode",
		},
		{
			name:           "Config",
			args:           []string{"--serve", "--config", "gym.yaml"},
			expectedCalled: "RunServe",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				if opts.ConfigFile != "gym.yaml" {
					t.Errorf("expected ConfigFile gym.yaml, got %s", opts.ConfigFile)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newMockApp()
			var out bytes.Buffer
			err := run(tt.args, &out, app)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}

			if !app.called[tt.expectedCalled] {
				t.Errorf("expected %s to be called", tt.expectedCalled)
			}
			if len(app.called) != 1 {
				t.Errorf("expected exactly one mode, got %v", app.called)
			}

			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_Defaults(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	if err := run([]string{"--serve"}, &out, app); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if app.opts.ConfigFile != "config.yaml" {
		t.Errorf("expected ConfigFile config.yaml, got %s", app.opts.ConfigFile)
	}
	if app.opts.OutputFile != "climbing-problem.png" {
		t.Errorf("expected OutputFile climbing-problem.png, got %s", app.opts.OutputFile)
	}
	if app.opts.HttpPort != 0 {
		t.Errorf("expected HttpPort 0 (use config), got %d", app.opts.HttpPort)
	}
}

func TestRun_DecodeArgument(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	if err := run([]string{"--decode", "http://host/?holds=%5B%5D"}, &out, app); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if app.sArg != "http://host/?holds=%5B%5D" {
		t.Errorf("expected decode argument to be passed through, got %s", app.sArg)
	}
}

func TestRun_PropagatesErrors(t *testing.T) {
	app := newMockApp()
	app.err = errors.New("boom")
	var out bytes.Buffer
	if err := run([]string{"--export"}, &out, app); err == nil || err.Error() != "boom" {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestRun_Help(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)
	if err == nil {
		t.Error("expected error from --help, got nil")
	}
	if !strings.Contains(out.String(), "Usage of spraywall") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	if err := run([]string{"--render"}, &out, app); err == nil {
		t.Error("expected error for unknown flag")
	}
	if len(app.called) != 0 {
		t.Errorf("expected no mode to run, got %v", app.called)
	}
}

func TestRun_Default(t *testing.T) {
	app := newMockApp()
	var out bytes.Buffer
	err := run([]string{}, &out, app)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expectedPrefix := "spraywall version: " + Version
	if !strings.Contains(out.String(), expectedPrefix) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "Use --serve") {
		t.Errorf("expected output to contain usage hints, got: %s", out.String())
	}
	if len(app.called) != 0 {
		t.Errorf("expected no mode to run, got %v", app.called)
	}
}

func TestMain_Execute(t *testing.T) {
	if Version == "" {
		t.Error("expected Version to be set")
	}
}
