package util

import (
	"github.com/aquilax/go-perlin"
)

// NoiseField — детерминированный 2D шум Перлина для генерации сценариев.
// Экземплярный, а не глобальный: разные сценарии используют разные сиды.
type NoiseField struct {
	noise *perlin.Perlin
}

// NewNoiseField создает генератор шума с указанным сидом
func NewNoiseField(seed int64) *NoiseField {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &NoiseField{noise: perlin.NewPerlin(alpha, beta, n, seed)}
}

// At возвращает значение шума для указанных координат (от 0 до 1)
func (f *NoiseField) At(x, y float64) float64 {
	// Noise2D возвращает значение от -1 до 1
	return (f.noise.Noise2D(x, y) + 1.0) / 2.0
}
