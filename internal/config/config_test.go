package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAMLFile(t *testing.T) {
	content := `
server:
  rest_port: 9090
  metrics_port: 9091
eventbus:
  use_jetstream: true
  url: nats://localhost:4222
  stream: AI_EVENTS
ai:
  detection_range: 300
  attack_range: 45
  memory_duration_ms: 15000
sim:
  agents_per_faction: 12
  world_size: 4096
trace:
  enabled: true
  dir: /tmp/trace
`
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Server.GetRESTPort())
	assert.Equal(t, 9091, cfg.Server.GetMetricsPort())
	assert.True(t, cfg.EventBus.UseJetStream)
	assert.Equal(t, "nats://localhost:4222", cfg.EventBus.URL)
	assert.Equal(t, 300.0, cfg.AI.DetectionRange)
	assert.Equal(t, 12, cfg.Sim.AgentsPerFaction)
	assert.True(t, cfg.Trace.Enabled)
}

func TestLoad_EmptyPathWithoutEnvMeansDefaults(t *testing.T) {
	t.Setenv("AI_CONFIG", "")

	cfg, err := Load("")
	assert.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  rest_port: 7000\n"), 0644))
	t.Setenv("AI_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 7000, cfg.Server.RESTPort)
}

func TestLoad_MissingFileAndBadYAML(t *testing.T) {
	_, err := Load("/nonexistent/config.yml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [не карта"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestServerConfig_PortFallbacks(t *testing.T) {
	var s ServerConfig

	t.Setenv("AI_REST_PORT", "")
	t.Setenv("AI_METRICS_PORT", "")
	assert.Equal(t, 8088, s.GetRESTPort())
	assert.Equal(t, 2112, s.GetMetricsPort())

	t.Setenv("AI_REST_PORT", "9999")
	assert.Equal(t, 9999, s.GetRESTPort())

	t.Setenv("AI_REST_PORT", "мусор")
	assert.Equal(t, 8088, s.GetRESTPort(), "Невалидный ENV игнорируется")

	// Явное значение из конфига приоритетнее ENV
	s.RESTPort = 7070
	t.Setenv("AI_REST_PORT", "9999")
	assert.Equal(t, 7070, s.GetRESTPort())
}

func TestAIConfig_ToAIDefaultsAndOverrides(t *testing.T) {
	// Пустая секция — чистые дефолты
	cfg, err := AIConfig{}.ToAI()
	require.NoError(t, err)
	assert.Equal(t, 200.0, cfg.DetectionRange)
	assert.Equal(t, 10*time.Second, cfg.MemoryDuration)

	// Частичное переопределение: остальное остается дефолтным
	cfg, err = AIConfig{
		DetectionRange:   300,
		GiveUpDistance:   600,
		MemoryDurationMs: 15000,
	}.ToAI()
	require.NoError(t, err)
	assert.Equal(t, 300.0, cfg.DetectionRange)
	assert.Equal(t, 600.0, cfg.GiveUpDistance)
	assert.Equal(t, 15*time.Second, cfg.MemoryDuration)
	assert.Equal(t, 30.0, cfg.AttackRange)
}

func TestAIConfig_ToAIRejectsInconsistent(t *testing.T) {
	// detection_range поднят выше give_up_distance по умолчанию
	_, err := AIConfig{DetectionRange: 500}.ToAI()
	assert.Error(t, err)
}

func TestSimConfig_Defaults(t *testing.T) {
	s := SimConfig{}.Defaults()
	assert.Equal(t, 8, s.AgentsPerFaction)
	assert.Equal(t, 4, s.Players)
	assert.Equal(t, 2048.0, s.WorldSize)
	assert.Equal(t, 40, s.ObstacleCount)
	assert.Equal(t, 20, s.TickRateHz)

	// Заданные значения не перетираются
	s = SimConfig{AgentsPerFaction: 2, TickRateHz: 60}.Defaults()
	assert.Equal(t, 2, s.AgentsPerFaction)
	assert.Equal(t, 60, s.TickRateHz)
}
