package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyServerDefaults(t *testing.T) {
	cfg := &ServerConfig{}
	applyServerDefaults(cfg)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, int64(50*1024*1024), cfg.MaxUploadSize)
	assert.Equal(t, 25, cfg.Pipeline.EmbeddingBatchSize)
	assert.Equal(t, 2, cfg.Pipeline.MinClusterSize)
	assert.Equal(t, 4, cfg.Pipeline.MaxCPUWorkers)
}

func TestApplyServerDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &ServerConfig{Addr: ":9999"}
	cfg.Pipeline.MinClusterSize = 5
	applyServerDefaults(cfg)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 5, cfg.Pipeline.MinClusterSize)
	assert.Equal(t, 25, cfg.Pipeline.EmbeddingBatchSize)
}
