package config

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	serverOnce   sync.Once
	serverConfig *ServerConfig
)

// ServerConfig holds HTTP and pipeline tunables. Values come from an optional
// config.yaml merged with environment variables.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	MaxUploadSize int64  `yaml:"max_upload_size"`

	Pipeline struct {
		EmbeddingBatchSize int `yaml:"embedding_batch_size"`
		MinClusterSize     int `yaml:"min_cluster_size"`
		MaxCPUWorkers      int `yaml:"max_cpu_workers"`
	} `yaml:"pipeline"`
}

func GetServerConfig() *ServerConfig {
	serverOnce.Do(func() {
		loadEnv()

		cfg := &ServerConfig{}
		if data, err := os.ReadFile(getEnvDefault("CONFIG_FILE", "config.yaml")); err == nil {
			// A broken config file falls back to defaults rather than aborting.
			_ = yaml.Unmarshal(data, cfg)
		}

		if addr := os.Getenv("SERVER_ADDR"); addr != "" {
			cfg.Addr = addr
		}
		applyServerDefaults(cfg)

		serverConfig = cfg
	})
	return serverConfig
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = 50 * 1024 * 1024 // 50MB
	}
	if cfg.Pipeline.EmbeddingBatchSize == 0 {
		cfg.Pipeline.EmbeddingBatchSize = 25
	}
	if cfg.Pipeline.MinClusterSize == 0 {
		cfg.Pipeline.MinClusterSize = 2
	}
	if cfg.Pipeline.MaxCPUWorkers == 0 {
		cfg.Pipeline.MaxCPUWorkers = 4
	}
}
