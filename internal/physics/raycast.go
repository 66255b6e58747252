package physics

import (
	"sync"

	"github.com/annel0/mmo-ai/internal/vec"
)

// AABB представляет прямоугольник, выровненный по осям
type AABB struct {
	Min, Max vec.Vec2Float
}

// NewAABB создаёт прямоугольник по центру и половинным размерам
func NewAABB(center vec.Vec2Float, halfWidth, halfHeight float64) AABB {
	return AABB{
		Min: vec.Vec2Float{X: center.X - halfWidth, Y: center.Y - halfHeight},
		Max: vec.Vec2Float{X: center.X + halfWidth, Y: center.Y + halfHeight},
	}
}

// Center возвращает центр прямоугольника
func (b AABB) Center() vec.Vec2Float {
	return vec.Vec2Float{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// Contains проверяет, находится ли точка внутри прямоугольника
func (b AABB) Contains(p vec.Vec2Float) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Overlaps проверяет пересечение двух прямоугольников
func (b AABB) Overlaps(other AABB) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y
}

// SegmentIntersect проверяет пересечение отрезка from→to с прямоугольником
// методом slab. Возвращает параметр t (0..1) точки входа отрезка.
func (b AABB) SegmentIntersect(from, to vec.Vec2Float) (float64, bool) {
	dir := to.Sub(from)

	tMin := 0.0
	tMax := 1.0

	// По каждой оси сужаем интервал [tMin, tMax]
	for axis := 0; axis < 2; axis++ {
		var origin, delta, lo, hi float64
		if axis == 0 {
			origin, delta, lo, hi = from.X, dir.X, b.Min.X, b.Max.X
		} else {
			origin, delta, lo, hi = from.Y, dir.Y, b.Min.Y, b.Max.Y
		}

		if delta == 0 {
			// Отрезок параллелен оси: либо внутри слэба, либо мимо
			if origin < lo || origin > hi {
				return 0, false
			}
			continue
		}

		t1 := (lo - origin) / delta
		t2 := (hi - origin) / delta
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}

	return tMin, true
}

// Hit описывает ближайшее попадание луча в препятствие
type Hit struct {
	Distance float64
	Point    vec.Vec2Float
	Obstacle AABB
}

// ObstacleField — набор статических препятствий с рейкастом.
// Служит конкретной реализацией физического зонда линии видимости.
type ObstacleField struct {
	mu        sync.RWMutex
	obstacles []AABB
}

// NewObstacleField создает пустое поле препятствий
func NewObstacleField() *ObstacleField {
	return &ObstacleField{}
}

// Add добавляет препятствие
func (f *ObstacleField) Add(box AABB) {
	f.mu.Lock()
	f.obstacles = append(f.obstacles, box)
	f.mu.Unlock()
}

// Count возвращает число препятствий
func (f *ObstacleField) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.obstacles)
}

// Obstacles возвращает копию списка препятствий
func (f *ObstacleField) Obstacles() []AABB {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]AABB{}, f.obstacles...)
}

// Raycast возвращает ближайшее попадание отрезка from→to в препятствие.
// ok == false — отрезок не пересекает ни одного препятствия.
func (f *ObstacleField) Raycast(from, to vec.Vec2Float) (Hit, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	bestT := 2.0
	var best AABB
	found := false

	for _, box := range f.obstacles {
		if t, hit := box.SegmentIntersect(from, to); hit && t < bestT {
			bestT = t
			best = box
			found = true
		}
	}

	if !found {
		return Hit{}, false
	}

	point := from.Lerp(to, bestT)
	return Hit{
		Distance: from.DistanceTo(point),
		Point:    point,
		Obstacle: best,
	}, true
}

// Blocked проверяет, находится ли точка внутри какого-либо препятствия
// (используется поисковиком пути для проверки проходимости)
func (f *ObstacleField) Blocked(p vec.Vec2Float) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, box := range f.obstacles {
		if box.Contains(p) {
			return true
		}
	}
	return false
}
