package config

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vango-dev/filestage/internal/errors"
	"github.com/vango-dev/filestage/pkg/policy"
	"github.com/vango-dev/filestage/pkg/preview"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "filestage.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultMaxSize is the default per-file size limit.
	DefaultMaxSize = "10MB"

	// DefaultMaxRequestSize caps one multipart request body.
	DefaultMaxRequestSize = "64MB"

	// DefaultSessionTTL is how long an idle session survives.
	DefaultSessionTTL = "30m"

	// DefaultPreviewPrefix is the URL prefix previews are served under.
	DefaultPreviewPrefix = "/previews"

	// DefaultMetricsPath is where Prometheus metrics are exposed.
	DefaultMetricsPath = "/metrics"
)

// Preview backends.
const (
	BackendMemory = "memory"
	BackendDisk   = "disk"
	BackendS3     = "s3"
)

// ErrUnknownBackend is matched by the error Validate returns for an
// unsupported preview backend.
var ErrUnknownBackend = errors.New("S023")

// Config represents the complete filestage.json configuration.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `json:"server"`

	// Policy is the acceptance policy given to every new session.
	Policy PolicyConfig `json:"policy"`

	// Preview selects and configures the preview backend.
	Preview PreviewConfig `json:"preview"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `json:"metrics"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// SessionTTL is how long an idle session lives (e.g., "30m").
	SessionTTL string `json:"sessionTTL,omitempty"`

	// MaxRequestSize caps multipart request bodies (e.g., "64MB").
	MaxRequestSize string `json:"maxRequestSize,omitempty"`

	// SessionsPerMinute limits session creation per client. Zero means
	// unlimited.
	SessionsPerMinute int `json:"sessionsPerMinute,omitempty"`

	// SessionBurst is how many sessions a client may open at once.
	SessionBurst int `json:"sessionBurst,omitempty"`
}

// PolicyConfig mirrors policy.Policy with a human-readable size.
type PolicyConfig struct {
	// MaxSize is the per-file limit (e.g., "10MB").
	MaxSize string `json:"maxSize,omitempty"`

	// Accept lists accepted MIME patterns. Empty or ["*"] accepts all.
	Accept []string `json:"accept,omitempty"`

	// AllowMultiple selects multi mode.
	AllowMultiple bool `json:"allowMultiple,omitempty"`
}

// PreviewConfig selects the preview backend.
type PreviewConfig struct {
	// Backend is "memory", "disk" or "s3".
	Backend string `json:"backend,omitempty"`

	// Prefix is the URL prefix for memory and disk previews.
	Prefix string `json:"prefix,omitempty"`

	// Dir is the directory used by the disk backend.
	Dir string `json:"dir,omitempty"`

	// S3 configures the s3 backend.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config contains S3 backend settings.
type S3Config struct {
	Bucket       string `json:"bucket,omitempty"`
	KeyPrefix    string `json:"keyPrefix,omitempty"`
	Region       string `json:"region,omitempty"`
	Endpoint     string `json:"endpoint,omitempty"`
	AccessKey    string `json:"accessKey,omitempty"`
	SecretKey    string `json:"secretKey,omitempty"`
	UsePathStyle bool   `json:"usePathStyle,omitempty"`

	// URLExpiry is how long presigned preview URLs stay valid (e.g., "1h").
	URLExpiry string `json:"urlExpiry,omitempty"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Path      string `json:"path,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			SessionTTL:     DefaultSessionTTL,
			MaxRequestSize: DefaultMaxRequestSize,
		},
		Policy: PolicyConfig{
			MaxSize: DefaultMaxSize,
			Accept:  []string{policy.Wildcard},
		},
		Preview: PreviewConfig{
			Backend: BackendMemory,
			Prefix:  DefaultPreviewPrefix,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      DefaultMetricsPath,
			Namespace: "filestage",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for filestage.json in the directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("S022").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or pass settings as flags")
		}
		return nil, errors.New("S020").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("S020").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("S020").Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("S020").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	// Server
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.SessionTTL == "" {
		c.Server.SessionTTL = DefaultSessionTTL
	}
	if c.Server.MaxRequestSize == "" {
		c.Server.MaxRequestSize = DefaultMaxRequestSize
	}

	// Policy
	if c.Policy.MaxSize == "" {
		c.Policy.MaxSize = DefaultMaxSize
	}

	// Preview
	if c.Preview.Backend == "" {
		c.Preview.Backend = BackendMemory
	}
	if c.Preview.Prefix == "" {
		c.Preview.Prefix = DefaultPreviewPrefix
	}
	if c.Preview.Backend == BackendDisk && c.Preview.Dir == "" {
		c.Preview.Dir = defaultPreviewDir()
	}

	// Metrics
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "filestage"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("S021").
			WithDetail("Port must be between 0 and 65535")
	}
	if _, err := c.SessionTTL(); err != nil {
		return errors.New("S021").
			WithDetail("server.sessionTTL: " + err.Error())
	}
	if _, err := c.MaxRequestBytes(); err != nil {
		return errors.New("S021").Wrap(err).
			WithDetail("server.maxRequestSize is not a valid size")
	}
	if _, err := c.StagePolicy(); err != nil {
		return errors.New("S021").Wrap(err).
			WithDetail("policy is invalid")
	}

	switch c.Preview.Backend {
	case BackendMemory:
	case BackendDisk:
	case BackendS3:
		if c.Preview.S3.Bucket == "" {
			return errors.New("S021").WithDetail("preview.s3.bucket is required for the s3 backend")
		}
		if c.Preview.S3.URLExpiry != "" {
			if _, err := time.ParseDuration(c.Preview.S3.URLExpiry); err != nil {
				return errors.New("S021").WithDetail("preview.s3.urlExpiry: " + err.Error())
			}
		}
	default:
		return errors.New("S023").
			WithDetail("Unknown backend " + strconv.Quote(c.Preview.Backend))
	}
	return nil
}

// Address returns the listen address.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// SessionTTL returns the parsed idle-session lifetime.
func (c *Config) SessionTTL() (time.Duration, error) {
	return time.ParseDuration(c.Server.SessionTTL)
}

// MaxRequestBytes returns the parsed request body cap.
func (c *Config) MaxRequestBytes() (int64, error) {
	return policy.ParseSize(c.Server.MaxRequestSize)
}

// StagePolicy returns the validated acceptance policy.
func (c *Config) StagePolicy() (*policy.Policy, error) {
	maxSize, err := policy.ParseSize(c.Policy.MaxSize)
	if err != nil {
		return nil, err
	}
	return policy.New(policy.Policy{
		MaxSizeBytes:   maxSize,
		AcceptPatterns: c.Policy.Accept,
		AllowMultiple:  c.Policy.AllowMultiple,
	})
}

// Backend builds the configured preview allocator. The returned handler
// serves preview bytes under Preview.Prefix; it is nil for the s3 backend,
// whose URLs point at the bucket.
func (c *Config) Backend(ctx context.Context) (preview.Allocator, http.Handler, error) {
	switch c.Preview.Backend {
	case BackendMemory, "":
		alloc := preview.NewMemoryAllocator(c.Preview.Prefix)
		return alloc, alloc.Handler(), nil

	case BackendDisk:
		maxSize, err := policy.ParseSize(c.Policy.MaxSize)
		if err != nil {
			return nil, nil, err
		}
		dir := c.Preview.Dir
		if dir == "" {
			dir = defaultPreviewDir()
		}
		alloc, err := preview.NewDiskAllocator(dir, c.Preview.Prefix, maxSize)
		if err != nil {
			return nil, nil, errors.New("S020").Wrap(err).
				WithDetail("Could not prepare preview directory " + dir)
		}
		// Sweep previews left behind by an earlier process.
		ttl, err := c.SessionTTL()
		if err != nil {
			ttl = 0
		}
		if err := alloc.Cleanup(ttl); err != nil {
			return nil, nil, errors.New("S020").Wrap(err).
				WithDetail("Could not sweep preview directory " + dir)
		}
		return alloc, alloc.Handler(), nil

	case BackendS3:
		s3cfg := c.Preview.S3
		client, err := preview.NewS3Client(ctx, preview.S3Options{
			Region:       s3cfg.Region,
			Endpoint:     s3cfg.Endpoint,
			AccessKey:    s3cfg.AccessKey,
			SecretKey:    s3cfg.SecretKey,
			UsePathStyle: s3cfg.UsePathStyle,
		})
		if err != nil {
			return nil, nil, errors.New("S020").Wrap(err).
				WithDetail("Could not load AWS configuration")
		}
		alloc := preview.NewS3Allocator(client, s3cfg.Bucket, s3cfg.KeyPrefix)
		if s3cfg.URLExpiry != "" {
			d, err := time.ParseDuration(s3cfg.URLExpiry)
			if err != nil {
				return nil, nil, errors.New("S021").WithDetail("preview.s3.urlExpiry: " + err.Error())
			}
			alloc.WithURLExpiry(d)
		}
		return alloc, nil, nil
	}
	return nil, nil, errors.New("S023").
		WithDetail("Unknown backend " + strconv.Quote(c.Preview.Backend))
}

func defaultPreviewDir() string {
	return filepath.Join(os.TempDir(), "filestage-previews")
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}
