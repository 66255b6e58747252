package ai

// ScoringStrategy — стратегия оценки приоритета цели.
// Оценка обязана быть чистой функцией своих аргументов (без скрытого
// состояния), чтобы тестироваться независимо. Стратегия выбирается при
// создании селектора и не меняется, пока агенты выполняют запросы.
type ScoringStrategy interface {
	Name() string
	Score(target EntitySnapshot, distance, detectionRange float64, visible bool) float64
}

// DistanceOnlyStrategy — простая стратегия: чем ближе цель, тем выше оценка.
// Здоровье, угроза и класс цели игнорируются.
type DistanceOnlyStrategy struct{}

// Name возвращает имя стратегии
func (DistanceOnlyStrategy) Name() string { return "distance_only" }

// Score возвращает линейно убывающую с дистанцией оценку (0..1)
func (DistanceOnlyStrategy) Score(_ EntitySnapshot, distance, detectionRange float64, _ bool) float64 {
	if detectionRange <= 0 {
		return 0
	}
	score := 1.0 - distance/detectionRange
	if score < 0 {
		score = 0
	}
	return score
}

// ScoredStrategy — многофакторная стратегия: базовая оценка, бонусы за
// низкое здоровье, угрозу и класс цели, множители дистанции и видимости.
type ScoredStrategy struct {
	BaseScore     float64
	HealthWeight  float64 // бонус пропорционален (1 - healthRatio)
	ThreatWeight  float64 // бонус пропорционален нормированной атаке
	AttackNorm    float64 // атака, принимаемая за единицу угрозы
	PlayerBonus   float64
	BossBonus     float64
	EliteBonus    float64
	DistanceDecay float64 // доля оценки, теряемая на краю радиуса обнаружения
	VisibleFactor float64 // множитель для видимых целей (>= 1)
}

// NewScoredStrategy возвращает многофакторную стратегию со стандартными весами
func NewScoredStrategy() ScoredStrategy {
	return ScoredStrategy{
		BaseScore:     10.0,
		HealthWeight:  20.0,
		ThreatWeight:  15.0,
		AttackNorm:    100.0,
		PlayerBonus:   25.0,
		BossBonus:     15.0,
		EliteBonus:    8.0,
		DistanceDecay: 0.5,
		VisibleFactor: 1.25,
	}
}

// Name возвращает имя стратегии
func (ScoredStrategy) Name() string { return "scored" }

// Score вычисляет приоритет цели.
// Слагаемые: база, бонус за недостающее здоровье, бонус за угрозу,
// бонус за класс. Множители: спад с дистанцией (ближе — всегда выше,
// никогда не ниже) и надбавка за подтвержденную видимость.
func (s ScoredStrategy) Score(target EntitySnapshot, distance, detectionRange float64, visible bool) float64 {
	score := s.BaseScore

	health := target.HealthRatio
	if health < 0 {
		health = 0
	}
	if health > 1 {
		health = 1
	}
	score += (1.0 - health) * s.HealthWeight

	threat := target.AttackStat / s.AttackNorm
	if threat > 1 {
		threat = 1
	}
	if threat < 0 {
		threat = 0
	}
	score += threat * s.ThreatWeight

	switch target.Class {
	case ClassPlayer:
		score += s.PlayerBonus
	case ClassBoss:
		score += s.BossBonus
	case ClassElite:
		score += s.EliteBonus
	}

	if detectionRange > 0 {
		ratio := distance / detectionRange
		if ratio > 1 {
			ratio = 1
		}
		score *= 1.0 - s.DistanceDecay*ratio
	}

	if visible {
		score *= s.VisibleFactor
	}

	return score
}
