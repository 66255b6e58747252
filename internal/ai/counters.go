package ai

import "sync/atomic"

// Counters — агрегированные счетчики AI-подсистемы для отладочного API
// и экспорта метрик. Все поля атомарные: читаются конкурентно из HTTP.
type Counters struct {
	Queries         atomic.Uint64 // всего запросов выбора цели
	TargetsFound    atomic.Uint64 // запросов, вернувших цель
	TargetsLost     atomic.Uint64 // переходов агентов в LostTarget
	MemoryFallbacks atomic.Uint64 // целей, найденных фазой памяти
	BlockedEvents   atomic.Uint64 // переходов агентов в Blocked
	PathRequests    atomic.Uint64 // запросов к поисковику пути
	PathFailures    atomic.Uint64 // неудачных запросов пути
}

// NewCounters создает набор счетчиков
func NewCounters() *Counters {
	return &Counters{}
}

// CountersSnapshot — снимок счетчиков для сериализации
type CountersSnapshot struct {
	Queries         uint64  `json:"queries"`
	TargetsFound    uint64  `json:"targets_found"`
	TargetsLost     uint64  `json:"targets_lost"`
	MemoryFallbacks uint64  `json:"memory_fallbacks"`
	BlockedEvents   uint64  `json:"blocked_events"`
	PathRequests    uint64  `json:"path_requests"`
	PathFailures    uint64  `json:"path_failures"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
}

// Snapshot возвращает консистентный снимок счетчиков.
// cacheHitRate подставляется вызывающим (кеш видимости хранит свои счетчики).
func (c *Counters) Snapshot(cacheHitRate float64) CountersSnapshot {
	return CountersSnapshot{
		Queries:         c.Queries.Load(),
		TargetsFound:    c.TargetsFound.Load(),
		TargetsLost:     c.TargetsLost.Load(),
		MemoryFallbacks: c.MemoryFallbacks.Load(),
		BlockedEvents:   c.BlockedEvents.Load(),
		PathRequests:    c.PathRequests.Load(),
		PathFailures:    c.PathFailures.Load(),
		CacheHitRate:    cacheHitRate,
	}
}
