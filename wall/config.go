package wall

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the unified spraywall configuration
type Config struct {
	Wall    WallConfig   `yaml:"wall"`
	Markers MarkerConfig `yaml:"markers"`
	HTTP    HTTPConfig   `yaml:"http"`
	MQTT    MQTTConfig   `yaml:"mqtt"`
}

// WallConfig describes the reference wall photo
type WallConfig struct {
	Title string `yaml:"title"`
	Image string `yaml:"image"` // file path or http(s) URL
	// Size is used for layout until the image reports its natural size
	Size Size `yaml:"size"`
}

// StateColors maps each hold state to a hex color
type StateColors struct {
	Start        string `yaml:"start"`
	Intermediate string `yaml:"intermediate"`
	Finish       string `yaml:"finish"`
}

// MarkerConfig controls marker sizing and colors
type MarkerConfig struct {
	Scale            float64     `yaml:"scale"`            // radius as a fraction of min(width, height)
	MobileScale      float64     `yaml:"mobileScale"`      // extra factor on small viewports
	MobileBreakpoint int         `yaml:"mobileBreakpoint"` // viewport widths <= this are mobile
	Colors           StateColors `yaml:"colors"`
	Outline          string      `yaml:"outline"`
	Selected         string      `yaml:"selected"`
}

// HTTPConfig configures the web surface
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"baseUrl"` // public origin used for share links; empty = local network address
}

// MQTTConfig configures the optional LED board publisher
type MQTTConfig struct {
	Broker        string `yaml:"broker"`
	ClientID      string `yaml:"clientId"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	PublishPrefix string `yaml:"publishPrefix"`
}

// DefaultMarkerConfig returns the stock marker look
func DefaultMarkerConfig() MarkerConfig {
	return MarkerConfig{
		Scale:            0.02,
		MobileScale:      1.5,
		MobileBreakpoint: 768,
		Colors: StateColors{
			Start:        "#22c55e",
			Intermediate: "#3b82f6",
			Finish:       "#ef4444",
		},
		Outline:  "#ffffff",
		Selected: "#facc15",
	}
}

// DefaultConfig returns a configuration that works without a config file
func DefaultConfig() *Config {
	return &Config{
		Wall: WallConfig{
			Title: "Spray Wall",
			Image: "wall-image.jpg",
			Size:  DefaultImageSize,
		},
		Markers: DefaultMarkerConfig(),
		HTTP: HTTPConfig{
			Port: 3000,
		},
		MQTT: MQTTConfig{
			ClientID:      "spraywall",
			PublishPrefix: "spraywall",
		},
	}
}

// LoadConfig loads a YAML file on top of DefaultConfig and validates it
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOptional is LoadConfig, except that a missing file yields the
// defaults. The second result reports whether the file was found.
func LoadConfigOptional(path string) (*Config, bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := DefaultConfig()
		config.applyEnv()
		return config, false, config.Validate()
	}
	config, err := LoadConfig(path)
	return config, err == nil, err
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// applyEnv lets the MQTT_* environment variables override the file
func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		"MQTT_BROKER":         &c.MQTT.Broker,
		"MQTT_CLIENT_ID":      &c.MQTT.ClientID,
		"MQTT_USERNAME":       &c.MQTT.Username,
		"MQTT_PASSWORD":       &c.MQTT.Password,
		"MQTT_PUBLISH_PREFIX": &c.MQTT.PublishPrefix,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

// Validate checks the configuration for values the renderer cannot use
func (c *Config) Validate() error {
	if c.Wall.Size.Width <= 0 || c.Wall.Size.Height <= 0 {
		return fmt.Errorf("wall.size must be positive, got %dx%d", c.Wall.Size.Width, c.Wall.Size.Height)
	}
	if err := c.Markers.Validate(); err != nil {
		return err
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if c.MQTT.Broker != "" && c.MQTT.PublishPrefix == "" {
		return fmt.Errorf("mqtt.publishPrefix is required when mqtt.broker is set")
	}
	return nil
}

// Validate checks marker sizing and that every color parses
func (m MarkerConfig) Validate() error {
	if m.Scale <= 0 {
		return fmt.Errorf("markers.scale must be > 0")
	}
	if m.MobileScale <= 0 {
		return fmt.Errorf("markers.mobileScale must be > 0")
	}
	if m.MobileBreakpoint < 0 {
		return fmt.Errorf("markers.mobileBreakpoint must be >= 0")
	}
	for name, hex := range map[string]string{
		"colors.start":        m.Colors.Start,
		"colors.intermediate": m.Colors.Intermediate,
		"colors.finish":       m.Colors.Finish,
		"outline":             m.Outline,
		"selected":            m.Selected,
	} {
		if _, err := ParseHexColor(hex); err != nil {
			return fmt.Errorf("markers.%s: %w", name, err)
		}
	}
	return nil
}

// IsRemoteImage reports whether the wall image is fetched over HTTP
func (w WallConfig) IsRemoteImage() bool {
	return strings.HasPrefix(w.Image, "http://") || strings.HasPrefix(w.Image, "https://")
}
