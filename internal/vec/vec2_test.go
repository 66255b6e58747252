package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2_Arithmetic(t *testing.T) {
	a := Vec2{X: 3, Y: 4}
	b := Vec2{X: 1, Y: -2}

	assert.Equal(t, Vec2{X: 4, Y: 2}, a.Add(b))
	assert.Equal(t, Vec2{X: 2, Y: 6}, a.Sub(b))
	assert.Equal(t, 8, a.ManhattanTo(b))
	assert.InDelta(t, 5.0, Vec2{}.DistanceTo(a), 1e-9)
}

func TestVec2Float_Arithmetic(t *testing.T) {
	a := Vec2Float{X: 3, Y: 4}
	b := Vec2Float{X: 1, Y: 2}

	assert.Equal(t, Vec2Float{X: 4, Y: 6}, a.Add(b))
	assert.Equal(t, Vec2Float{X: 2, Y: 2}, a.Sub(b))
	assert.Equal(t, Vec2Float{X: 6, Y: 8}, a.Mul(2))
	assert.InDelta(t, 11.0, a.Dot(b), 1e-9)
	assert.InDelta(t, 5.0, a.Length(), 1e-9)
	assert.InDelta(t, 25.0, a.LengthSq(), 1e-9)
}

func TestVec2Float_Normalized(t *testing.T) {
	n := Vec2Float{X: 3, Y: 4}.Normalized()
	assert.InDelta(t, 1.0, n.Length(), 1e-9)
	assert.InDelta(t, 0.6, n.X, 1e-9)
	assert.InDelta(t, 0.8, n.Y, 1e-9)

	// Нулевой вектор не порождает NaN
	zero := Vec2Float{}.Normalized()
	assert.True(t, zero.IsZero())
}

func TestVec2Float_Distances(t *testing.T) {
	a := Vec2Float{X: 1, Y: 1}
	b := Vec2Float{X: 4, Y: 5}

	assert.InDelta(t, 5.0, a.DistanceTo(b), 1e-9)
	assert.InDelta(t, 25.0, a.DistanceSqTo(b), 1e-9)
	assert.Equal(t, a.DistanceTo(b), b.DistanceTo(a))
}

func TestVec2Float_Lerp(t *testing.T) {
	a := Vec2Float{X: 0, Y: 0}
	b := Vec2Float{X: 10, Y: 20}

	assert.Equal(t, a, a.Lerp(b, 0))
	assert.Equal(t, b, a.Lerp(b, 1))
	assert.Equal(t, Vec2Float{X: 5, Y: 10}, a.Lerp(b, 0.5))
}

func TestVec2Float_Quantized(t *testing.T) {
	assert.Equal(t, Vec2{X: 1, Y: 0}, Vec2Float{X: 10, Y: 3}.Quantized(8))
	assert.Equal(t, Vec2{X: 1, Y: 1}, Vec2Float{X: 12, Y: 4}.Quantized(8))

	// Близкие точки квантуются в один ключ
	assert.Equal(t,
		Vec2Float{X: 100.2, Y: 50.1}.Quantized(8),
		Vec2Float{X: 101.9, Y: 52.3}.Quantized(8))

	// Неположительный шаг заменяется единицей
	assert.Equal(t, Vec2{X: 3, Y: 4}, Vec2Float{X: 3.2, Y: 4.1}.Quantized(0))
}

func TestVec2Float_Conversions(t *testing.T) {
	assert.Equal(t, Vec2{X: 3, Y: -5}, Vec2Float{X: 3.9, Y: -4.1}.ToVec2(), "Округление к минус бесконечности")
	assert.Equal(t, Vec2Float{X: 3, Y: -5}, FromVec2(Vec2{X: 3, Y: -5}))
}
