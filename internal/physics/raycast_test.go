package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-ai/internal/vec"
)

func TestAABB_Basics(t *testing.T) {
	box := NewAABB(vec.Vec2Float{X: 10, Y: 10}, 5, 3)

	assert.Equal(t, vec.Vec2Float{X: 5, Y: 7}, box.Min)
	assert.Equal(t, vec.Vec2Float{X: 15, Y: 13}, box.Max)
	assert.Equal(t, vec.Vec2Float{X: 10, Y: 10}, box.Center())

	assert.True(t, box.Contains(vec.Vec2Float{X: 10, Y: 10}))
	assert.True(t, box.Contains(vec.Vec2Float{X: 5, Y: 7}), "Граница включается")
	assert.False(t, box.Contains(vec.Vec2Float{X: 4.9, Y: 10}))
}

func TestAABB_Overlaps(t *testing.T) {
	a := NewAABB(vec.Vec2Float{X: 0, Y: 0}, 5, 5)
	b := NewAABB(vec.Vec2Float{X: 8, Y: 0}, 5, 5)
	c := NewAABB(vec.Vec2Float{X: 20, Y: 20}, 5, 5)

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c))

	// Касание граней считается пересечением
	d := NewAABB(vec.Vec2Float{X: 10, Y: 0}, 5, 5)
	assert.True(t, a.Overlaps(d))
}

func TestAABB_SegmentIntersect(t *testing.T) {
	box := NewAABB(vec.Vec2Float{X: 50, Y: 0}, 10, 10)

	// Горизонтальный отрезок сквозь прямоугольник
	tEnter, hit := box.SegmentIntersect(vec.Vec2Float{X: 0, Y: 0}, vec.Vec2Float{X: 100, Y: 0})
	require.True(t, hit)
	assert.InDelta(t, 0.4, tEnter, 1e-9, "Вход в прямоугольник при x=40")

	// Отрезок не дотягивается до прямоугольника
	_, hit = box.SegmentIntersect(vec.Vec2Float{X: 0, Y: 0}, vec.Vec2Float{X: 30, Y: 0})
	assert.False(t, hit)

	// Отрезок проходит мимо
	_, hit = box.SegmentIntersect(vec.Vec2Float{X: 0, Y: 50}, vec.Vec2Float{X: 100, Y: 50})
	assert.False(t, hit)

	// Старт внутри прямоугольника: t = 0
	tEnter, hit = box.SegmentIntersect(vec.Vec2Float{X: 50, Y: 0}, vec.Vec2Float{X: 100, Y: 0})
	require.True(t, hit)
	assert.Zero(t, tEnter)

	// Вырожденный по оси отрезок внутри слэба
	_, hit = box.SegmentIntersect(vec.Vec2Float{X: 45, Y: -20}, vec.Vec2Float{X: 45, Y: 20})
	assert.True(t, hit)
}

func TestObstacleField_RaycastNearestHit(t *testing.T) {
	field := NewObstacleField()
	far := NewAABB(vec.Vec2Float{X: 80, Y: 0}, 5, 5)
	near := NewAABB(vec.Vec2Float{X: 40, Y: 0}, 5, 5)
	field.Add(far)
	field.Add(near)

	hit, ok := field.Raycast(vec.Vec2Float{X: 0, Y: 0}, vec.Vec2Float{X: 100, Y: 0})
	require.True(t, ok)
	assert.Equal(t, near, hit.Obstacle, "Возвращается ближайшее препятствие")
	assert.InDelta(t, 35.0, hit.Distance, 1e-9)
	assert.InDelta(t, 35.0, hit.Point.X, 1e-9)
}

func TestObstacleField_RaycastMiss(t *testing.T) {
	field := NewObstacleField()
	field.Add(NewAABB(vec.Vec2Float{X: 50, Y: 50}, 5, 5))

	_, ok := field.Raycast(vec.Vec2Float{X: 0, Y: 0}, vec.Vec2Float{X: 100, Y: 0})
	assert.False(t, ok)

	// Пустое поле
	empty := NewObstacleField()
	_, ok = empty.Raycast(vec.Vec2Float{X: 0, Y: 0}, vec.Vec2Float{X: 100, Y: 0})
	assert.False(t, ok)
}

func TestObstacleField_Blocked(t *testing.T) {
	field := NewObstacleField()
	field.Add(NewAABB(vec.Vec2Float{X: 10, Y: 10}, 5, 5))

	assert.True(t, field.Blocked(vec.Vec2Float{X: 10, Y: 10}))
	assert.True(t, field.Blocked(vec.Vec2Float{X: 15, Y: 15}), "Граница блокирует")
	assert.False(t, field.Blocked(vec.Vec2Float{X: 20, Y: 20}))
	assert.Equal(t, 1, field.Count())
}
