package ai

import (
	"fmt"
	"time"
)

// Config содержит параметры AI-подсистемы для одного агента/селектора.
// Неверная конфигурация отклоняется при создании компонентов,
// а не обнаруживается посреди симуляции.
type Config struct {
	DetectionRange        float64       // максимальная дистанция прямого обнаружения
	AttackRange           float64       // дистанция, на которой агент останавливается и атакует
	MemoryDuration        time.Duration // время жизни записи памяти о цели
	MaxLineOfSightDist    float64       // дальше этой дистанции рейкаст не выполняется
	SearchRadius          float64       // радиус поиска вокруг последней известной позиции
	MaxSearchAttempts     int           // число неудачных раундов поиска до забывания
	PathUpdateInterval    time.Duration // минимальный интервал между запросами пути
	PathNodeThreshold     float64       // дистанция достижения путевой точки
	MaxPathAge            time.Duration // возраст, после которого путь перезапрашивается
	BlockedCheckInterval  time.Duration // время без смещения до перехода в Blocked
	GiveUpDistance        float64       // дистанция безусловного отказа от цели
	VisibilityCacheTTL    time.Duration // время жизни записи кеша видимости
	GridCellSize          float64       // размер ячейки пространственной сетки
	SearchInterval        time.Duration // пауза в Idle перед новым поиском цели
	BlockedTimeout        time.Duration // пауза в Blocked перед перезапуском пути
	LostTargetTimeout     time.Duration // пауза в LostTarget перед новым поиском
	VisibilityQuantStep   float64       // шаг квантования ключей кеша видимости
}

// DefaultConfig возвращает конфигурацию с разумными значениями по умолчанию
func DefaultConfig() Config {
	return Config{
		DetectionRange:       200.0,
		AttackRange:          30.0,
		MemoryDuration:       10 * time.Second,
		MaxLineOfSightDist:   250.0,
		SearchRadius:         60.0,
		MaxSearchAttempts:    3,
		PathUpdateInterval:   time.Second,
		PathNodeThreshold:    8.0,
		MaxPathAge:           5 * time.Second,
		BlockedCheckInterval: 1500 * time.Millisecond,
		GiveUpDistance:       400.0,
		VisibilityCacheTTL:   500 * time.Millisecond,
		GridCellSize:         64.0,
		SearchInterval:       time.Second,
		BlockedTimeout:       2 * time.Second,
		LostTargetTimeout:    time.Second,
		VisibilityQuantStep:  1.0,
	}
}

// Validate проверяет конфигурацию и возвращает описательную ошибку
func (c Config) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"detection_range", c.DetectionRange > 0},
		{"attack_range", c.AttackRange > 0},
		{"memory_duration", c.MemoryDuration > 0},
		{"max_line_of_sight_distance", c.MaxLineOfSightDist > 0},
		{"search_radius", c.SearchRadius > 0},
		{"max_search_attempts", c.MaxSearchAttempts > 0},
		{"path_update_interval", c.PathUpdateInterval > 0},
		{"path_node_threshold", c.PathNodeThreshold > 0},
		{"max_path_age", c.MaxPathAge > 0},
		{"blocked_check_interval", c.BlockedCheckInterval > 0},
		{"give_up_distance", c.GiveUpDistance > 0},
		{"visibility_cache_ttl", c.VisibilityCacheTTL > 0},
		{"grid_cell_size", c.GridCellSize > 0},
		{"search_interval", c.SearchInterval > 0},
		{"blocked_timeout", c.BlockedTimeout > 0},
		{"lost_target_timeout", c.LostTargetTimeout > 0},
	}

	for _, check := range checks {
		if !check.ok {
			return fmt.Errorf("ai config: параметр %s должен быть положительным", check.name)
		}
	}

	if c.GiveUpDistance < c.DetectionRange {
		return fmt.Errorf("ai config: give_up_distance (%.1f) меньше detection_range (%.1f)",
			c.GiveUpDistance, c.DetectionRange)
	}
	if c.AttackRange > c.DetectionRange {
		return fmt.Errorf("ai config: attack_range (%.1f) больше detection_range (%.1f)",
			c.AttackRange, c.DetectionRange)
	}

	return nil
}
