package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig selects the backend. WardsFile is a GeoJSON
// FeatureCollection loaded into the memory driver at startup; postgres
// deployments load wards with cmd/wardload instead.
type DatabaseConfig struct {
	Driver            string
	WardsFile         string
	WardsNameProperty string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	PublicRead    bool
	UseSSL        bool
	Region        string
}

type PipelineConfig struct {
	DuplicateRadiusMeters float64
	Quality               int
	StagingDir            string
	StagingMaxAge         time.Duration
	SweepSchedule         string
	MaxUploadBytes        int64
}

type AppConfig struct {
	Environment      string
	Version          string
	HTTP             HTTPConfig
	Database         DatabaseConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Pipeline         PipelineConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := newViper("config", "CIVICSNAP")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required when database.driver is %q", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Pipeline.Quality < 0 || c.Pipeline.Quality > 100 {
		return fmt.Errorf("pipeline.quality must be within 0-100, got %d", c.Pipeline.Quality)
	}
	if c.Pipeline.DuplicateRadiusMeters <= 0 {
		return fmt.Errorf("pipeline.duplicateradiusmeters must be positive")
	}
	return nil
}

func newViper(name, envPrefix string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "mapstructure"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("version", "1.0")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.readtimeout", "30s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.wardsfile", "")
	v.SetDefault("database.wardsnameproperty", "name")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 20)
	v.SetDefault("postgres.maxidle", 2)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "complaints:tasks")

	v.SetDefault("storage.endpoint", "http://127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "complaint-images")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("storage.publicread", true)
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("pipeline.duplicateradiusmeters", 20.0)
	v.SetDefault("pipeline.quality", 80)
	v.SetDefault("pipeline.stagingdir", "uploads")
	v.SetDefault("pipeline.stagingmaxage", "1h")
	v.SetDefault("pipeline.sweepschedule", "0 */10 * * * *")
	v.SetDefault("pipeline.maxuploadbytes", 20<<20)

	v.SetDefault("allowcorsorigins", []string{})
}
