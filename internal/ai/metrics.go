package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter периодически переносит счетчики селектора в Prometheus.
// Экспортер опирается только на публичные снимки счетчиков и не делает
// предположений о внутреннем устройстве селектора.
type MetricsExporter struct {
	selector *TargetSelector
	quit     chan struct{}
	done     chan struct{}

	queries      prometheus.Counter
	targetsFound prometheus.Counter
	targetsLost  prometheus.Counter
	memoryHits   prometheus.Counter
	blocked      prometheus.Counter
	pathRequests prometheus.Counter
	pathFailures prometheus.Counter
	cacheHitRate prometheus.Gauge
	memorySize   prometheus.Gauge
	indexSize    prometheus.Gauge
}

// NewMetricsExporter создает экспортер и регистрирует метрики
// в дефолтном регистре Prometheus.
func NewMetricsExporter(selector *TargetSelector) *MetricsExporter {
	me := &MetricsExporter{
		selector: selector,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ai",
			Name:      "target_queries_total",
			Help:      "Общее число запросов выбора цели.",
		}),
		targetsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ai",
			Name:      "targets_found_total",
			Help:      "Запросов, вернувших цель.",
		}),
		targetsLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ai",
			Name:      "targets_lost_total",
			Help:      "Переходов агентов в состояние потери цели.",
		}),
		memoryHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ai",
			Name:      "memory_fallbacks_total",
			Help:      "Целей, найденных фазой поиска по памяти.",
		}),
		blocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ai",
			Name:      "agents_blocked_total",
			Help:      "Переходов агентов в состояние Blocked.",
		}),
		pathRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ai",
			Name:      "path_requests_total",
			Help:      "Запросов к поисковику пути.",
		}),
		pathFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ai",
			Name:      "path_failures_total",
			Help:      "Неудачных запросов пути (включая таймауты).",
		}),
		cacheHitRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ai",
			Name:      "visibility_cache_hit_rate",
			Help:      "Доля попаданий кеша видимости (0..1).",
		}),
		memorySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ai",
			Name:      "target_memory_records",
			Help:      "Текущее число записей памяти целей.",
		}),
		indexSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ai",
			Name:      "spatial_index_entities",
			Help:      "Текущее число сущностей в пространственном индексе.",
		}),
	}

	prometheus.MustRegister(
		me.queries, me.targetsFound, me.targetsLost, me.memoryHits,
		me.blocked, me.pathRequests, me.pathFailures,
		me.cacheHitRate, me.memorySize, me.indexSize,
	)
	return me
}

// Start запускает цикл обновления метрик в отдельной горутине
func (m *MetricsExporter) Start() {
	go m.loop()
}

// Stop останавливает обновление метрик
func (m *MetricsExporter) Stop() {
	close(m.quit)
	<-m.done
}

func (m *MetricsExporter) loop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	defer close(m.done)

	// Counter принимает только приращения: храним прошлый снимок
	var prev CountersSnapshot

	for {
		select {
		case <-ticker.C:
			snap := m.selector.Counters().Snapshot(m.selector.Vision().HitRate())

			addDelta(m.queries, snap.Queries, prev.Queries)
			addDelta(m.targetsFound, snap.TargetsFound, prev.TargetsFound)
			addDelta(m.targetsLost, snap.TargetsLost, prev.TargetsLost)
			addDelta(m.memoryHits, snap.MemoryFallbacks, prev.MemoryFallbacks)
			addDelta(m.blocked, snap.BlockedEvents, prev.BlockedEvents)
			addDelta(m.pathRequests, snap.PathRequests, prev.PathRequests)
			addDelta(m.pathFailures, snap.PathFailures, prev.PathFailures)

			m.cacheHitRate.Set(snap.CacheHitRate)
			m.memorySize.Set(float64(m.selector.Memory().Count()))
			m.indexSize.Set(float64(m.selector.Index().EntityCount()))

			prev = snap
		case <-m.quit:
			return
		}
	}
}

func addDelta(counter prometheus.Counter, current, previous uint64) {
	if current > previous {
		counter.Add(float64(current - previous))
	}
}
