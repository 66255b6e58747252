package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceOnlyStrategy(t *testing.T) {
	s := DistanceOnlyStrategy{}
	target := EntitySnapshot{}

	assert.InDelta(t, 1.0, s.Score(target, 0, 200, true), 1e-9)
	assert.InDelta(t, 0.5, s.Score(target, 100, 200, true), 1e-9)
	assert.Zero(t, s.Score(target, 200, 200, true))
	assert.Zero(t, s.Score(target, 300, 200, true), "За пределами радиуса оценка не уходит в минус")
	assert.Zero(t, s.Score(target, 50, 0, true), "Нулевой радиус обнаружения безопасен")
}

func TestScoredStrategy_LowHealthScoresHigher(t *testing.T) {
	s := NewScoredStrategy()

	wounded := EntitySnapshot{HealthRatio: 0.5}
	healthy := EntitySnapshot{HealthRatio: 1.0}

	woundedScore := s.Score(wounded, 150, 200, true)
	healthyScore := s.Score(healthy, 150, 200, true)
	assert.Greater(t, woundedScore, healthyScore, "Раненая цель приоритетнее при прочих равных")

	// Ratio здоровья зажимается в [0, 1]
	assert.Equal(t, s.Score(EntitySnapshot{HealthRatio: -0.5}, 100, 200, true),
		s.Score(EntitySnapshot{HealthRatio: 0}, 100, 200, true))
	assert.Equal(t, s.Score(EntitySnapshot{HealthRatio: 2.0}, 100, 200, true),
		s.Score(EntitySnapshot{HealthRatio: 1}, 100, 200, true))
}

func TestScoredStrategy_ThreatBonus(t *testing.T) {
	s := NewScoredStrategy()

	weak := EntitySnapshot{HealthRatio: 1, AttackStat: 10}
	strong := EntitySnapshot{HealthRatio: 1, AttackStat: 80}
	capped := EntitySnapshot{HealthRatio: 1, AttackStat: 500}

	assert.Greater(t, s.Score(strong, 100, 200, true), s.Score(weak, 100, 200, true))
	// Угроза нормируется и зажимается: атака выше нормы бонус не раздувает
	assert.Equal(t, s.Score(capped, 100, 200, true),
		s.Score(EntitySnapshot{HealthRatio: 1, AttackStat: 100}, 100, 200, true))
}

func TestScoredStrategy_ClassBonusOrdering(t *testing.T) {
	s := NewScoredStrategy()
	at := func(class Classification) float64 {
		return s.Score(EntitySnapshot{HealthRatio: 1, Class: class}, 100, 200, true)
	}

	player := at(ClassPlayer)
	boss := at(ClassBoss)
	elite := at(ClassElite)
	generic := at(ClassGeneric)

	assert.Greater(t, player, boss, "Игрок приоритетнее босса")
	assert.Greater(t, boss, elite)
	assert.Greater(t, elite, generic)
}

func TestScoredStrategy_CloserNeverScoresLower(t *testing.T) {
	s := NewScoredStrategy()
	target := EntitySnapshot{HealthRatio: 0.7, AttackStat: 40}

	prev := s.Score(target, 0, 200, true)
	for d := 10.0; d <= 300; d += 10 {
		cur := s.Score(target, d, 200, true)
		assert.LessOrEqual(t, cur, prev, "Оценка не растет с дистанцией (d=%.0f)", d)
		prev = cur
	}

	// На краю радиуса теряется ровно доля DistanceDecay
	edge := s.Score(target, 200, 200, false)
	near := s.Score(target, 0, 200, false)
	assert.InDelta(t, near*(1-s.DistanceDecay), edge, 1e-9)
}

func TestScoredStrategy_VisibleFactor(t *testing.T) {
	s := NewScoredStrategy()
	target := EntitySnapshot{HealthRatio: 0.5, AttackStat: 30, Class: ClassElite}

	visible := s.Score(target, 120, 200, true)
	hidden := s.Score(target, 120, 200, false)
	assert.InDelta(t, hidden*s.VisibleFactor, visible, 1e-9)
}

func TestScoredStrategy_IsPure(t *testing.T) {
	s := NewScoredStrategy()
	target := EntitySnapshot{HealthRatio: 0.3, AttackStat: 60, Class: ClassBoss}

	first := s.Score(target, 90, 200, true)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Score(target, 90, 200, true), "Оценка — чистая функция аргументов")
	}
}
