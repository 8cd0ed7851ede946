package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("MAX_CONFIDENCE", "")
	t.Setenv("IMPROVE_WORKERS", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.MaxConfidence)
	assert.Equal(t, 8, cfg.ImproveWorkers)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func Test_Load_Environment(t *testing.T) {
	t.Setenv("MAX_CONFIDENCE", "50")
	t.Setenv("IMPROVE_WORKERS", "2")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.MaxConfidence)
	assert.Equal(t, 2, cfg.ImproveWorkers)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func Test_Load_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{name: "non-numeric confidence", env: "MAX_CONFIDENCE", value: "many"},
		{name: "zero confidence", env: "MAX_CONFIDENCE", value: "0"},
		{name: "zero workers", env: "IMPROVE_WORKERS", value: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MAX_CONFIDENCE", "")
			t.Setenv("IMPROVE_WORKERS", "")
			t.Setenv(tt.env, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func Test_Load_FileOverridesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "max_confidence: 10\nkafka_brokers:\n  - broker-a:9092\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("MAX_CONFIDENCE", "75")
	t.Setenv("IMPROVE_WORKERS", "")
	t.Setenv("KAFKA_BROKERS", "env-broker:9092")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxConfidence)
	assert.Equal(t, []string{"broker-a:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 8, cfg.ImproveWorkers, "fields absent from the file keep their defaults")
}

func Test_Load_MissingFile(t *testing.T) {
	t.Setenv("MAX_CONFIDENCE", "")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
