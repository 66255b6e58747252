package ai

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/mmo-ai/internal/vec"
)

// VisibilityResult — результат проверки линии видимости
type VisibilityResult struct {
	Visible  bool
	Blocker  EntityID // сущность-препятствие, если видимость заблокирована ею
	Distance float64
}

// visKey — квантованная пара (откуда, куда)
type visKey struct {
	origin vec.Vec2
	target vec.Vec2
}

// visEntry — закешированный результат с отметкой времени
type visEntry struct {
	result    VisibilityResult
	timestamp time.Time
}

// VisibilityCache — кеш проверок линии видимости поверх внешнего рейкаста.
// Координаты квантуются, чтобы почти одинаковые повторные запросы в пределах
// одного окна кадров попадали в одну запись. Записи живут фиксированный TTL;
// путь чтения проверяет только свежесть, чистка выполняется периодическим
// SweepExpired, а не на каждом чтении.
type VisibilityCache struct {
	ttl       time.Duration
	quantStep float64
	maxLOS    float64

	mu      sync.RWMutex
	entries map[visKey]visEntry

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewVisibilityCache создает кеш видимости.
// ttl — время жизни записи, quantStep — шаг квантования координат ключа,
// maxLOS — дистанция, дальше которой рейкаст не выполняется вовсе.
func NewVisibilityCache(ttl time.Duration, quantStep, maxLOS float64) *VisibilityCache {
	if ttl <= 0 {
		ttl = 500 * time.Millisecond
	}
	if quantStep <= 0 {
		quantStep = 1.0
	}
	return &VisibilityCache{
		ttl:       ttl,
		quantStep: quantStep,
		maxLOS:    maxLOS,
		entries:   make(map[visKey]visEntry),
	}
}

// CheckVisibility проверяет видимость target из origin, используя кеш.
// На промахе: дистанция больше maxLOS — сразу «не видно» без рейкаста;
// иначе делегирует probe. Попадание луча в препятствие, отличное от цели,
// означает «не видно» с записью блокера; любое другое попадание (в том числе
// отсутствие попаданий) — «видно». probe == nil трактуется как «видно»
// (физика недоступна — деградируем оптимистично).
func (vc *VisibilityCache) CheckVisibility(origin, target vec.Vec2Float, targetID EntityID, probe LineOfSightProbe, now time.Time) VisibilityResult {
	key := visKey{
		origin: origin.Quantized(vc.quantStep),
		target: target.Quantized(vc.quantStep),
	}

	vc.mu.RLock()
	entry, exists := vc.entries[key]
	vc.mu.RUnlock()

	if exists && now.Sub(entry.timestamp) < vc.ttl {
		vc.hits.Add(1)
		return entry.result
	}
	vc.misses.Add(1)

	result := vc.probeVisibility(origin, target, targetID, probe)

	vc.mu.Lock()
	vc.entries[key] = visEntry{result: result, timestamp: now}
	vc.mu.Unlock()

	return result
}

// RecheckVisibility проверяет видимость, минуя чтение кеша: рейкаст
// выполняется всегда, свежий результат перезаписывает запись по тому же
// ключу. Используется раундом поиска по памяти — там закешированный вердикт
// «не видно» может быть только что записан прямой фазой того же запроса.
func (vc *VisibilityCache) RecheckVisibility(origin, target vec.Vec2Float, targetID EntityID, probe LineOfSightProbe, now time.Time) VisibilityResult {
	key := visKey{
		origin: origin.Quantized(vc.quantStep),
		target: target.Quantized(vc.quantStep),
	}

	vc.misses.Add(1)
	result := vc.probeVisibility(origin, target, targetID, probe)

	vc.mu.Lock()
	vc.entries[key] = visEntry{result: result, timestamp: now}
	vc.mu.Unlock()

	return result
}

// probeVisibility выполняет фактическую проверку без кеша
func (vc *VisibilityCache) probeVisibility(origin, target vec.Vec2Float, targetID EntityID, probe LineOfSightProbe) VisibilityResult {
	distance := origin.DistanceTo(target)

	if distance > vc.maxLOS {
		return VisibilityResult{Visible: false, Distance: distance}
	}

	if probe == nil {
		return VisibilityResult{Visible: true, Distance: distance}
	}

	hit, ok := probe.Raycast(origin, target)
	if ok && hit.Obstacle && hit.Entity != targetID {
		return VisibilityResult{
			Visible:  false,
			Blocker:  hit.Entity,
			Distance: distance,
		}
	}

	return VisibilityResult{Visible: true, Distance: distance}
}

// SweepExpired удаляет записи старше TTL; возвращает число удаленных.
// Запускается на фиксированной каденции, независимо от запросов агентов.
func (vc *VisibilityCache) SweepExpired(now time.Time) int {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	removed := 0
	for key, entry := range vc.entries {
		if now.Sub(entry.timestamp) >= vc.ttl {
			delete(vc.entries, key)
			removed++
		}
	}
	return removed
}

// HitRate возвращает долю попаданий кеша (0..1)
func (vc *VisibilityCache) HitRate() float64 {
	hits := vc.hits.Load()
	misses := vc.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Stats возвращает счетчики кеша: попадания, промахи, текущий размер
func (vc *VisibilityCache) Stats() (hits, misses uint64, size int) {
	vc.mu.RLock()
	size = len(vc.entries)
	vc.mu.RUnlock()
	return vc.hits.Load(), vc.misses.Load(), size
}
