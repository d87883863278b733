package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type WorkerRedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type QueueConfig struct {
	ClaimInterval time.Duration
	BatchSize     int
}

type LoggingConfig struct {
	Level string
}

type MetricsConfig struct {
	Addr string
}

type WorkerConfig struct {
	Environment string
	Redis       WorkerRedisConfig
	Storage     StorageConfig
	Queues      QueueConfig
	Logging     LoggingConfig
	Metrics     MetricsConfig
}

func LoadWorker() (*WorkerConfig, error) {
	v := newViper("worker", "CIVICSNAP_WORKER")
	v.AddConfigPath("./config")
	v.AddConfigPath("../../config")

	setWorkerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return &cfg, nil
}

func setWorkerDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "complaints:tasks")
	v.SetDefault("redis.group", "complaint-workers")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("storage.endpoint", "http://127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "complaint-images")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("storage.publicread", false)
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("queues.claiminterval", "30s")
	v.SetDefault("queues.batchsize", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("metrics.addr", ":9101")
}
