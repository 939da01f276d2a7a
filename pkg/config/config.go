package config

import (
	"fmt"
	"os"
	"time"

	"streamgate/pkg/validation"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Live         LiveConfig         `yaml:"live"`
	Playback     PlaybackConfig     `yaml:"playback"`
	Recordings   RecordingsConfig   `yaml:"recordings"`
	Metadata     MetadataConfig     `yaml:"metadata"`
	Cache        CacheConfig        `yaml:"cache"`
	Events       EventsConfig       `yaml:"events"`
	Monitoring   MonitoringConfig   `yaml:"monitoring"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Logging      LoggingConfig      `yaml:"logging"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	PublicBaseURL   string        `yaml:"public_base_url"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type LiveConfig struct {
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	GracePeriod       time.Duration `yaml:"grace_period"`
	ViewerBuffer      int           `yaml:"viewer_buffer"`
}

type PlaybackConfig struct {
	MaxWindow     time.Duration `yaml:"max_window"`
	ArtifactTTL   time.Duration `yaml:"artifact_ttl"`
	Workers       int           `yaml:"workers"`
	QueueSize     int           `yaml:"queue_size"`
	OutputDir     string        `yaml:"output_dir"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	DeleteTimeout time.Duration `yaml:"delete_timeout"`
}

type RecordingsConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type MetadataConfig struct {
	Backend  string `yaml:"backend"` // memory or postgres
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
	// Cameras seeds the memory backend; ignored for postgres.
	Cameras []CameraSeedConfig `yaml:"cameras"`
}

// CameraSeedConfig is one camera record for the memory metadata backend.
type CameraSeedConfig struct {
	ID           string `yaml:"id"`
	DivisionName string `yaml:"division_name"`
	DistrictName string `yaml:"district_name"`
	WorkID       string `yaml:"work_id"`
	RtspURL      string `yaml:"rtsp_url"`
	RtmpURL      string `yaml:"rtmp_url"`
}

type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Redis    bool          `yaml:"redis"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"pool_size"`
}

type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	JaegerURL   string  `yaml:"jaeger_url"`
	Environment string  `yaml:"environment"`
	SampleRate  float64 `yaml:"sample_rate"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RateLimitingConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxConcurrent     int     `yaml:"max_concurrent"`
}

// DSN builds the metadata database connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Metadata.User, c.Metadata.Password, c.Metadata.Host, c.Metadata.Port, c.Metadata.Name)
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if err := validation.ValidatePublicURL(c.Server.PublicBaseURL); err != nil {
		return fmt.Errorf("server.public_base_url: %w", err)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be >= 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	if c.Live.ConnectTimeout <= 0 {
		return fmt.Errorf("live.connect_timeout must be > 0")
	}
	if c.Live.ReconnectAttempts < 0 {
		return fmt.Errorf("live.reconnect_attempts must be >= 0")
	}
	if c.Live.GracePeriod < 0 {
		return fmt.Errorf("live.grace_period must be >= 0")
	}
	if c.Live.ViewerBuffer <= 0 {
		return fmt.Errorf("live.viewer_buffer must be > 0")
	}

	if c.Playback.MaxWindow <= 0 {
		return fmt.Errorf("playback.max_window must be > 0")
	}
	if c.Playback.ArtifactTTL <= 0 {
		return fmt.Errorf("playback.artifact_ttl must be > 0")
	}
	if c.Playback.Workers <= 0 {
		return fmt.Errorf("playback.workers must be > 0")
	}
	if c.Playback.QueueSize <= 0 {
		return fmt.Errorf("playback.queue_size must be > 0")
	}
	if c.Playback.OutputDir == "" {
		return fmt.Errorf("playback.output_dir must not be empty")
	}
	if c.Playback.SweepInterval <= 0 {
		return fmt.Errorf("playback.sweep_interval must be > 0")
	}

	for i, cam := range c.Metadata.Cameras {
		if err := validation.ValidateCameraID(cam.ID); err != nil {
			return fmt.Errorf("metadata.cameras[%d].id: %w", i, err)
		}
		if cam.RtspURL == "" && cam.RtmpURL == "" {
			return fmt.Errorf("metadata.cameras[%d] (%s) needs an rtsp_url or rtmp_url", i, cam.ID)
		}
		if cam.RtspURL != "" {
			if err := validation.ValidateSourceURL(cam.RtspURL); err != nil {
				return fmt.Errorf("metadata.cameras[%d].rtsp_url: %w", i, err)
			}
		}
		if cam.RtmpURL != "" {
			if err := validation.ValidateSourceURL(cam.RtmpURL); err != nil {
				return fmt.Errorf("metadata.cameras[%d].rtmp_url: %w", i, err)
			}
		}
	}

	switch c.Metadata.Backend {
	case "memory":
	case "postgres":
		if c.Metadata.Host == "" {
			return fmt.Errorf("metadata.host must not be empty when backend=postgres")
		}
		if c.Metadata.Name == "" {
			return fmt.Errorf("metadata.name must not be empty when backend=postgres")
		}
	default:
		return fmt.Errorf("metadata.backend must be memory or postgres, got %q", c.Metadata.Backend)
	}

	if c.Cache.Redis {
		if c.Cache.Address == "" {
			return fmt.Errorf("cache.address must not be empty when cache.redis=true")
		}
		if c.Cache.PoolSize <= 0 {
			return fmt.Errorf("cache.pool_size must be > 0 when cache.redis=true")
		}
	}

	if c.Events.Enabled && c.Events.NATSURL == "" {
		return fmt.Errorf("events.nats_url must not be empty when events.enabled=true")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.RateLimiting.Enabled {
		if c.RateLimiting.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Burst <= 0 {
			return fmt.Errorf("rate_limiting.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.PublicBaseURL = "http://localhost:8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	// Live responses stream indefinitely; no global write deadline.
	cfg.Server.WriteTimeout = 0
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.AllowedOrigins = []string{"*"}

	cfg.Live.ConnectTimeout = 10 * time.Second
	cfg.Live.ReconnectAttempts = 3
	cfg.Live.ReconnectDelay = 2 * time.Second
	cfg.Live.GracePeriod = 30 * time.Second
	cfg.Live.ViewerBuffer = 32

	cfg.Playback.MaxWindow = 30 * time.Minute
	cfg.Playback.ArtifactTTL = 15 * time.Minute
	cfg.Playback.Workers = 4
	cfg.Playback.QueueSize = 16
	cfg.Playback.OutputDir = "/var/lib/streamgate/playback"
	cfg.Playback.SweepInterval = time.Minute
	cfg.Playback.DeleteTimeout = 10 * time.Second

	cfg.Recordings.Endpoint = "localhost:9000"
	cfg.Recordings.Bucket = "recordings"

	cfg.Metadata.Backend = "memory"
	cfg.Metadata.Port = 5432
	cfg.Metadata.MaxConns = 10

	cfg.Cache.TTL = time.Minute
	cfg.Cache.Redis = false
	cfg.Cache.Address = "localhost:6379"
	cfg.Cache.PoolSize = 10

	cfg.Events.Enabled = false
	cfg.Events.NATSURL = "nats://localhost:4222"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "streamgate"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 50
	cfg.RateLimiting.Burst = 100
	cfg.RateLimiting.MaxConcurrent = 0

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("STREAMGATE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if base := os.Getenv("STREAMGATE_PUBLIC_BASE_URL"); base != "" {
		c.Server.PublicBaseURL = base
	}
	if level := os.Getenv("STREAMGATE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dir := os.Getenv("STREAMGATE_PLAYBACK_DIR"); dir != "" {
		c.Playback.OutputDir = dir
	}
	if ep := os.Getenv("STREAMGATE_MINIO_ENDPOINT"); ep != "" {
		c.Recordings.Endpoint = ep
	}
	if key := os.Getenv("STREAMGATE_MINIO_ACCESS_KEY"); key != "" {
		c.Recordings.AccessKey = key
	}
	if key := os.Getenv("STREAMGATE_MINIO_SECRET_KEY"); key != "" {
		c.Recordings.SecretKey = key
	}
	if host := os.Getenv("STREAMGATE_DB_HOST"); host != "" {
		c.Metadata.Host = host
	}
	if pass := os.Getenv("STREAMGATE_DB_PASSWORD"); pass != "" {
		c.Metadata.Password = pass
	}
	if url := os.Getenv("STREAMGATE_NATS_URL"); url != "" {
		c.Events.NATSURL = url
	}
}
