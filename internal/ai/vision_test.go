package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/mmo-ai/internal/vec"
)

// countingProbe считает фактические рейкасты, делегируя внутреннему зонду
type countingProbe struct {
	inner LineOfSightProbe
	calls int
}

func (p *countingProbe) Raycast(from, to vec.Vec2Float) (RaycastHit, bool) {
	p.calls++
	if p.inner == nil {
		return RaycastHit{}, false
	}
	return p.inner.Raycast(from, to)
}

func TestVisibilityCache_FreshEntryServedWithoutRaycast(t *testing.T) {
	clock := newTestClock()
	cache := NewVisibilityCache(time.Second, 8, 400)
	probe := &countingProbe{}

	origin := vec.Vec2Float{X: 0, Y: 0}
	target := vec.Vec2Float{X: 100, Y: 0}

	first := cache.CheckVisibility(origin, target, 1, probe, clock.Now())
	assert.True(t, first.Visible)
	assert.Equal(t, 1, probe.calls)

	// Повторный запрос в пределах TTL — из кеша, без рейкаста
	clock.Advance(300 * time.Millisecond)
	second := cache.CheckVisibility(origin, target, 1, probe, clock.Now())
	assert.True(t, second.Visible)
	assert.Equal(t, 1, probe.calls, "Свежая запись обслуживается без рейкаста")

	hits, misses, size := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, size)
}

func TestVisibilityCache_ExpiredEntryReprobed(t *testing.T) {
	clock := newTestClock()
	cache := NewVisibilityCache(time.Second, 8, 400)
	probe := &countingProbe{}

	origin := vec.Vec2Float{}
	target := vec.Vec2Float{X: 100, Y: 0}

	cache.CheckVisibility(origin, target, 1, probe, clock.Now())
	clock.Advance(time.Second) // ровно TTL — запись уже не свежая
	cache.CheckVisibility(origin, target, 1, probe, clock.Now())

	assert.Equal(t, 2, probe.calls, "Протухшая запись перепроверяется рейкастом")
}

func TestVisibilityCache_QuantizationCollapsesNearbyQueries(t *testing.T) {
	clock := newTestClock()
	cache := NewVisibilityCache(time.Second, 8, 400)
	probe := &countingProbe{}

	cache.CheckVisibility(vec.Vec2Float{X: 1, Y: 1}, vec.Vec2Float{X: 100, Y: 0}, 1, probe, clock.Now())
	// Сдвиг меньше шага квантования — тот же ключ
	cache.CheckVisibility(vec.Vec2Float{X: 3, Y: 2}, vec.Vec2Float{X: 102, Y: 1}, 1, probe, clock.Now())

	assert.Equal(t, 1, probe.calls)
	_, _, size := cache.Stats()
	assert.Equal(t, 1, size)
}

func TestVisibilityCache_BeyondMaxLOSSkipsRaycast(t *testing.T) {
	clock := newTestClock()
	cache := NewVisibilityCache(time.Second, 8, 400)
	probe := &countingProbe{}

	result := cache.CheckVisibility(vec.Vec2Float{}, vec.Vec2Float{X: 500, Y: 0}, 1, probe, clock.Now())
	assert.False(t, result.Visible, "За пределами maxLOS цель не видна")
	assert.Equal(t, 0, probe.calls, "Рейкаст не выполняется вовсе")
	assert.InDelta(t, 500.0, result.Distance, 1e-9)
}

func TestVisibilityCache_NilProbeIsOptimistic(t *testing.T) {
	clock := newTestClock()
	cache := NewVisibilityCache(time.Second, 8, 400)

	result := cache.CheckVisibility(vec.Vec2Float{}, vec.Vec2Float{X: 100, Y: 0}, 1, nil, clock.Now())
	assert.True(t, result.Visible, "Без физики деградируем оптимистично")
}

func TestVisibilityCache_ObstacleBlocksAndRecordsBlocker(t *testing.T) {
	clock := newTestClock()
	cache := NewVisibilityCache(time.Second, 8, 400)
	wall := &wallProbe{wallX: 50, active: true}

	result := cache.CheckVisibility(vec.Vec2Float{}, vec.Vec2Float{X: 100, Y: 0}, 7, wall, clock.Now())
	assert.False(t, result.Visible)
	assert.Equal(t, EntityID(0), result.Blocker, "Стена — не сущность")

	// Попадание в саму цель видимость не блокирует
	self := &countingProbe{inner: probeFunc(func(from, to vec.Vec2Float) (RaycastHit, bool) {
		return RaycastHit{Entity: 7, Distance: from.DistanceTo(to)}, true
	})}
	result = cache.CheckVisibility(vec.Vec2Float{X: 200, Y: 200}, vec.Vec2Float{X: 300, Y: 200}, 7, self, clock.Now())
	assert.True(t, result.Visible)
}

// probeFunc адаптирует функцию к интерфейсу LineOfSightProbe
type probeFunc func(from, to vec.Vec2Float) (RaycastHit, bool)

func (f probeFunc) Raycast(from, to vec.Vec2Float) (RaycastHit, bool) { return f(from, to) }

func TestVisibilityCache_SweepExpired(t *testing.T) {
	clock := newTestClock()
	cache := NewVisibilityCache(time.Second, 8, 400)

	cache.CheckVisibility(vec.Vec2Float{}, vec.Vec2Float{X: 100, Y: 0}, 1, nil, clock.Now())
	clock.Advance(700 * time.Millisecond)
	cache.CheckVisibility(vec.Vec2Float{}, vec.Vec2Float{X: 200, Y: 0}, 2, nil, clock.Now())

	clock.Advance(300 * time.Millisecond)
	removed := cache.SweepExpired(clock.Now())
	assert.Equal(t, 1, removed, "Удалена только запись старше TTL")

	_, _, size := cache.Stats()
	assert.Equal(t, 1, size)
}

func TestVisibilityCache_HitRate(t *testing.T) {
	clock := newTestClock()
	cache := NewVisibilityCache(time.Second, 8, 400)

	assert.Zero(t, cache.HitRate(), "Без запросов доля попаданий равна нулю")

	cache.CheckVisibility(vec.Vec2Float{}, vec.Vec2Float{X: 100, Y: 0}, 1, nil, clock.Now())
	cache.CheckVisibility(vec.Vec2Float{}, vec.Vec2Float{X: 100, Y: 0}, 1, nil, clock.Now())
	cache.CheckVisibility(vec.Vec2Float{}, vec.Vec2Float{X: 100, Y: 0}, 1, nil, clock.Now())

	assert.InDelta(t, 2.0/3.0, cache.HitRate(), 1e-9)
}
