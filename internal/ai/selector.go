package ai

import (
	"sort"
	"sync"
	"time"

	"github.com/annel0/mmo-ai/internal/vec"
)

// TargetSelector — движок выбора цели: по точке, фракции и радиусу возвращает
// одну лучшую достижимую цель, комбинируя пространственный индекс, таблицу
// отношений, кеш видимости и память целей.
type TargetSelector struct {
	index    *SpatialIndex
	factions *RelationshipTable
	vision   *VisibilityCache
	memory   *TargetMemory
	provider EntityProvider
	probe    LineOfSightProbe
	strategy ScoringStrategy
	cfg      Config
	counters *Counters

	now func() time.Time // переопределяется в тестах

	mu         sync.RWMutex
	registered map[Faction]map[EntityID]struct{}
}

// SelectorDeps — внешние коллабораторы селектора
type SelectorDeps struct {
	Provider EntityProvider
	Probe    LineOfSightProbe // может быть nil: видимость считается подтвержденной
	Factions *RelationshipTable
	Strategy ScoringStrategy // nil — используется ScoredStrategy
}

// NewTargetSelector создает селектор целей.
// Конфигурация проверяется здесь: ошибки конфигурации — ошибки создания,
// а не сюрпризы посреди симуляции.
func NewTargetSelector(cfg Config, deps SelectorDeps) (*TargetSelector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	strategy := deps.Strategy
	if strategy == nil {
		strategy = NewScoredStrategy()
	}

	factions := deps.Factions
	if factions == nil {
		factions = NewRelationshipTable()
		factions.SetRelationships(DefaultRelationships())
	}

	index := NewSpatialIndex(cfg.GridCellSize, deps.Provider)

	return &TargetSelector{
		index:      index,
		factions:   factions,
		vision:     NewVisibilityCache(cfg.VisibilityCacheTTL, cfg.VisibilityQuantStep, cfg.MaxLineOfSightDist),
		memory:     NewTargetMemory(deps.Provider, cfg.MemoryDuration, cfg.MaxSearchAttempts),
		provider:   deps.Provider,
		probe:      deps.Probe,
		strategy:   strategy,
		cfg:        cfg,
		counters:   NewCounters(),
		now:        time.Now,
		registered: make(map[Faction]map[EntityID]struct{}),
	}, nil
}

// Index возвращает пространственный индекс селектора
func (ts *TargetSelector) Index() *SpatialIndex { return ts.index }

// Vision возвращает кеш видимости селектора
func (ts *TargetSelector) Vision() *VisibilityCache { return ts.vision }

// Memory возвращает память целей селектора
func (ts *TargetSelector) Memory() *TargetMemory { return ts.memory }

// Factions возвращает таблицу отношений фракций
func (ts *TargetSelector) Factions() *RelationshipTable { return ts.factions }

// Counters возвращает счетчики селектора
func (ts *TargetSelector) Counters() *Counters { return ts.counters }

// Strategy возвращает имя активной стратегии оценки
func (ts *TargetSelector) Strategy() string { return ts.strategy.Name() }

// RegisterTarget регистрирует сущность как потенциальную цель фракции.
// Идемпотентна: повторная регистрация той же пары (handle, faction) — no-op.
// Регистрация также помещает сущность в пространственный индекс.
func (ts *TargetSelector) RegisterTarget(id EntityID, faction Faction) {
	snap, ok := ts.provider.GetEntity(id)
	if !ok {
		return
	}

	ts.mu.Lock()
	members, exists := ts.registered[faction]
	if !exists {
		members = make(map[EntityID]struct{})
		ts.registered[faction] = members
	}
	if _, dup := members[id]; dup {
		ts.mu.Unlock()
		return
	}
	members[id] = struct{}{}
	ts.mu.Unlock()

	ts.index.Register(id, snap.Position)
}

// DeregisterTarget снимает регистрацию; no-op для отсутствующей записи
func (ts *TargetSelector) DeregisterTarget(id EntityID, faction Faction) {
	ts.mu.Lock()
	if members, exists := ts.registered[faction]; exists {
		delete(members, id)
		if len(members) == 0 {
			delete(ts.registered, faction)
		}
	}
	ts.mu.Unlock()

	ts.index.Unregister(id)
	ts.memory.Forget(id)
}

// UpdateTargetPosition синхронизирует позицию сущности в индексе
func (ts *TargetSelector) UpdateTargetPosition(id EntityID, pos vec.Vec2Float) {
	ts.index.UpdatePosition(id, pos)
}

// TargetsByFaction возвращает зарегистрированные цели фракции
func (ts *TargetSelector) TargetsByFaction(faction Faction) []EntityID {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	members, exists := ts.registered[faction]
	if !exists {
		return nil
	}

	result := make([]EntityID, 0, len(members))
	for id := range members {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// CalculateTargetPriority вычисляет приоритет цели активной стратегией
func (ts *TargetSelector) CalculateTargetPriority(target EntitySnapshot, distance float64, visible bool) float64 {
	return ts.strategy.Score(target, distance, ts.cfg.DetectionRange, visible)
}

// FindBestTarget возвращает одну лучшую цель для агента в origin с фракцией
// myFaction в радиусе detectionRange, либо nil, если целей нет (это
// нормальный исход запроса, не ошибка).
//
// Фаза 1 (прямая): для каждой вражеской фракции — радиусный запрос, проверка
// видимости, запись наблюдения в память; видимые кандидаты оцениваются
// стратегией, при равных оценках побеждает встреченный первым (порядок
// перечисления фракция-затем-регистрация, без пересортировки).
//
// Фаза 2 (память): только если фаза 1 ничего не нашла — обход неистекших
// записей памяти вражеских фракций в радиусе обнаружения, раунд поиска вокруг
// последней известной позиции, оценка со штрафами за возраст и число попыток.
func (ts *TargetSelector) FindBestTarget(origin vec.Vec2Float, myFaction Faction, detectionRange float64, selfID EntityID) *TargetInfo {
	ts.counters.Queries.Add(1)

	if detectionRange <= 0 {
		detectionRange = ts.cfg.DetectionRange
	}

	enemyFactions := ts.factions.EnemiesOf(myFaction)
	if len(enemyFactions) == 0 {
		return nil
	}

	now := ts.now()

	if best := ts.findDirect(origin, enemyFactions, detectionRange, selfID, now); best != nil {
		ts.counters.TargetsFound.Add(1)
		return best
	}

	if best := ts.findFromMemory(origin, enemyFactions, detectionRange, selfID, now); best != nil {
		ts.counters.TargetsFound.Add(1)
		ts.counters.MemoryFallbacks.Add(1)
		return best
	}

	return nil
}

// findDirect — фаза 1: прямое обнаружение через пространственный индекс
func (ts *TargetSelector) findDirect(origin vec.Vec2Float, enemyFactions []Faction, detectionRange float64, selfID EntityID, now time.Time) *TargetInfo {
	var best *TargetInfo

	for _, faction := range enemyFactions {
		candidates := ts.index.QueryRadius(origin, detectionRange, QueryFilter{
			Factions:  []Faction{faction},
			AliveOnly: true,
			Exclude:   selfID,
		})

		for _, candidate := range candidates {
			snap := candidate.Snapshot
			vis := ts.vision.CheckVisibility(origin, snap.Position, snap.ID, ts.probe, now)
			ts.memory.RecordSighting(snap.ID, snap.Position, snap.Faction, vis.Visible, now)

			if !vis.Visible {
				continue
			}

			score := ts.strategy.Score(snap, candidate.Distance, detectionRange, true)
			// Строгое сравнение: при равенстве побеждает встреченный первым
			if best == nil || score > best.Priority {
				best = &TargetInfo{
					ID:       snap.ID,
					Position: snap.Position,
					Distance: candidate.Distance,
					Faction:  snap.Faction,
					Priority: score,
				}
			}
		}
	}

	return best
}

// findFromMemory — фаза 2: поиск по памяти с штрафами за возраст и попытки
func (ts *TargetSelector) findFromMemory(origin vec.Vec2Float, enemyFactions []Faction, detectionRange float64, selfID EntityID, now time.Time) *TargetInfo {
	enemySet := make(map[Faction]bool, len(enemyFactions))
	for _, f := range enemyFactions {
		enemySet[f] = true
	}

	memoryDuration := ts.memory.MemoryDuration()
	var best *TargetInfo

	for _, record := range ts.memory.Records() {
		if !enemySet[record.Faction] || record.ID == selfID {
			continue
		}

		age := now.Sub(record.LastSeenTime)
		if age > memoryDuration {
			continue
		}
		if record.LastSeenPosition.DistanceTo(origin) > detectionRange {
			continue
		}

		candidate, found := ts.memory.SearchAroundMemory(record, origin, ts.index, ts.vision, ts.probe, ts.cfg.SearchRadius, now)
		if !found {
			continue
		}

		distance := candidate.Snapshot.Position.DistanceTo(origin)
		if distance > detectionRange {
			continue
		}
		score := ts.strategy.Score(candidate.Snapshot, distance, detectionRange, false)

		memoryFactor := 1.0 - age.Seconds()/memoryDuration.Seconds()
		if memoryFactor < 0.3 {
			memoryFactor = 0.3
		}
		retryFactor := 1.0 - float64(record.SearchAttempts)*0.2
		if retryFactor < 0.5 {
			retryFactor = 0.5
		}
		score *= memoryFactor * retryFactor

		if best == nil || score > best.Priority {
			best = &TargetInfo{
				ID:         candidate.Snapshot.ID,
				Position:   candidate.Snapshot.Position,
				Distance:   distance,
				Faction:    candidate.Snapshot.Faction,
				Priority:   score,
				FromMemory: true,
			}
		}
	}

	return best
}
