package wall

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrNoWallImage is returned when an export is asked for without a
// reference image
var ErrNoWallImage = errors.New("no wall image loaded")

const (
	// DefaultFetchTimeout is the default HTTP request timeout for image fetches.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	defaultBaseBackoff = 500 * time.Millisecond

	// maxImageBytes limits a wall photo to 50 MB
	maxImageBytes = 50 << 20
)

// WallImage is the decoded reference photo together with its original
// bytes, which are served unchanged to the browser
type WallImage struct {
	Image       image.Image
	Size        Size
	Format      string
	ContentType string
	Data        []byte
}

// DecodeWallImage decodes jpeg, png, webp or bmp bytes
func DecodeWallImage(data []byte) (*WallImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding wall image: %w", err)
	}
	b := img.Bounds()
	return &WallImage{
		Image:       img,
		Size:        Size{Width: b.Dx(), Height: b.Dy()},
		Format:      format,
		ContentType: "image/" + format,
		Data:        data,
	}, nil
}

// LoadWallImage loads the reference photo from a path or an http(s) URL
func LoadWallImage(ctx context.Context, source string, opts ...FetchOption) (*WallImage, error) {
	if source == "" {
		return nil, ErrNoWallImage
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err := FetchImage(ctx, source, opts...)
		if err != nil {
			return nil, err
		}
		return DecodeWallImage(data)
	}

	data, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		return nil, fmt.Errorf("reading wall image: %w", err)
	}
	return DecodeWallImage(data)
}

// FetchOption configures FetchImage behavior.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	client      *http.Client
}

func defaultFetchConfig() fetchConfig {
	return fetchConfig{
		timeout:     DefaultFetchTimeout,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.timeout = d
	}
}

// WithMaxRetries sets the maximum number of attempts.
func WithMaxRetries(n int) FetchOption {
	return func(c *fetchConfig) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the base delay for exponential backoff between retries.
func WithBaseBackoff(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.baseBackoff = d
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(c *fetchConfig) {
		c.client = client
	}
}

// FetchImage downloads a wall photo, retrying transient failures with
// exponential backoff
func FetchImage(ctx context.Context, imageURL string, opts ...FetchOption) ([]byte, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("fetch image: URL is empty")
	}

	cfg := defaultFetchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxRetries < 1 {
		cfg.maxRetries = 1
	}

	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	var lastErr error
	for attempt := range cfg.maxRetries {
		if attempt > 0 {
			backoff := cfg.baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch image: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		body, err := doFetch(ctx, client, imageURL)
		if err != nil {
			lastErr = err
			continue
		}
		return body, nil
	}

	return nil, fmt.Errorf("fetch image: all %d attempts failed: %w", cfg.maxRetries, lastErr)
}

func doFetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return body, nil
}
