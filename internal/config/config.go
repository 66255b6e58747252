package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/mmo-ai/internal/ai"
)

// Config — корневая структура конфигурации приложения.

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	EventBus EventBusConfig `yaml:"eventbus"`
	AI       AIConfig       `yaml:"ai"`
	Sim      SimConfig      `yaml:"sim"`
	Trace    TraceConfig    `yaml:"trace"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type EventBusConfig struct {
	UseJetStream bool   `yaml:"use_jetstream"`
	URL          string `yaml:"url"`
	Stream       string `yaml:"stream"`
	Retention    int    `yaml:"retention_hours"`
	Buffer       int    `yaml:"buffer"`
}

// AIConfig — параметры подсистемы выбора целей и навигации.
// Нулевое значение любого поля означает «взять дефолт».
// Дистанции в мировых единицах, интервалы в миллисекундах.
type AIConfig struct {
	DetectionRange       float64 `yaml:"detection_range"`
	AttackRange          float64 `yaml:"attack_range"`
	MemoryDurationMs     int     `yaml:"memory_duration_ms"`
	MaxLineOfSightDist   float64 `yaml:"max_line_of_sight_dist"`
	SearchRadius         float64 `yaml:"search_radius"`
	MaxSearchAttempts    int     `yaml:"max_search_attempts"`
	PathUpdateIntervalMs int     `yaml:"path_update_interval_ms"`
	PathNodeThreshold    float64 `yaml:"path_node_threshold"`
	MaxPathAgeMs         int     `yaml:"max_path_age_ms"`
	BlockedCheckMs       int     `yaml:"blocked_check_ms"`
	GiveUpDistance       float64 `yaml:"give_up_distance"`
	VisibilityCacheMs    int     `yaml:"visibility_cache_ms"`
	GridCellSize         float64 `yaml:"grid_cell_size"`
	SearchIntervalMs     int     `yaml:"search_interval_ms"`
	BlockedTimeoutMs     int     `yaml:"blocked_timeout_ms"`
	LostTargetTimeoutMs  int     `yaml:"lost_target_timeout_ms"`
	VisibilityQuantStep  float64 `yaml:"visibility_quant_step"`
}

type SimConfig struct {
	AgentsPerFaction int     `yaml:"agents_per_faction"`
	Players          int     `yaml:"players"`
	WorldSize        float64 `yaml:"world_size"`
	ObstacleCount    int     `yaml:"obstacle_count"`
	Seed             int64   `yaml:"seed"`
	TickRateHz       int     `yaml:"tick_rate_hz"`
}

type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// GetRESTPort возвращает REST API порт с приоритетом config -> env -> default
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "AI_REST_PORT", 8088)
}

// GetMetricsPort возвращает порт Prometheus с приоритетом config -> env -> default
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "AI_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// ToAI переводит YAML-представление в рабочую конфигурацию подсистемы,
// подставляя дефолты вместо незаданных полей, и валидирует результат.
func (c AIConfig) ToAI() (ai.Config, error) {
	cfg := ai.DefaultConfig()

	setF := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	setD := func(dst *time.Duration, ms int) {
		if ms > 0 {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}

	setF(&cfg.DetectionRange, c.DetectionRange)
	setF(&cfg.AttackRange, c.AttackRange)
	setD(&cfg.MemoryDuration, c.MemoryDurationMs)
	setF(&cfg.MaxLineOfSightDist, c.MaxLineOfSightDist)
	setF(&cfg.SearchRadius, c.SearchRadius)
	if c.MaxSearchAttempts > 0 {
		cfg.MaxSearchAttempts = c.MaxSearchAttempts
	}
	setD(&cfg.PathUpdateInterval, c.PathUpdateIntervalMs)
	setF(&cfg.PathNodeThreshold, c.PathNodeThreshold)
	setD(&cfg.MaxPathAge, c.MaxPathAgeMs)
	setD(&cfg.BlockedCheckInterval, c.BlockedCheckMs)
	setF(&cfg.GiveUpDistance, c.GiveUpDistance)
	setD(&cfg.VisibilityCacheTTL, c.VisibilityCacheMs)
	setF(&cfg.GridCellSize, c.GridCellSize)
	setD(&cfg.SearchInterval, c.SearchIntervalMs)
	setD(&cfg.BlockedTimeout, c.BlockedTimeoutMs)
	setD(&cfg.LostTargetTimeout, c.LostTargetTimeoutMs)
	setF(&cfg.VisibilityQuantStep, c.VisibilityQuantStep)

	if err := cfg.Validate(); err != nil {
		return ai.Config{}, err
	}
	return cfg, nil
}

// Defaults заполняет незаданные поля симуляции рабочими значениями.
func (s SimConfig) Defaults() SimConfig {
	if s.AgentsPerFaction <= 0 {
		s.AgentsPerFaction = 8
	}
	if s.Players <= 0 {
		s.Players = 4
	}
	if s.WorldSize <= 0 {
		s.WorldSize = 2048
	}
	if s.ObstacleCount <= 0 {
		s.ObstacleCount = 40
	}
	if s.TickRateHz <= 0 {
		s.TickRateHz = 20
	}
	return s
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV AI_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AI_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
