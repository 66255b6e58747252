package ai

import (
	"sync"
	"time"

	"github.com/annel0/mmo-ai/internal/vec"
)

// MemoryRecord — запись памяти об однажды увиденной цели.
// Позволяет «искать там, где видел в последний раз» после потери видимости.
type MemoryRecord struct {
	ID               EntityID
	Faction          Faction
	LastSeenPosition vec.Vec2Float
	LastSeenTime     time.Time
	WasVisible       bool
	SearchAttempts   int
}

// TargetMemory хранит записи памяти по целям. Запись создается при первом
// обнаружении, обновляется при каждом последующем и уничтожается, когда
// возраст превышает memoryDuration, исчерпаны попытки поиска или сущность
// перестала существовать.
type TargetMemory struct {
	provider          EntityProvider
	memoryDuration    time.Duration
	maxSearchAttempts int

	mu      sync.RWMutex
	records map[EntityID]*MemoryRecord
}

// NewTargetMemory создает память целей
func NewTargetMemory(provider EntityProvider, memoryDuration time.Duration, maxSearchAttempts int) *TargetMemory {
	if memoryDuration <= 0 {
		memoryDuration = 10 * time.Second
	}
	if maxSearchAttempts <= 0 {
		maxSearchAttempts = 3
	}
	return &TargetMemory{
		provider:          provider,
		memoryDuration:    memoryDuration,
		maxSearchAttempts: maxSearchAttempts,
		records:           make(map[EntityID]*MemoryRecord),
	}
}

// RecordSighting фиксирует результат наблюдения цели.
// Видимая цель: позиция и время обновляются, счетчик поиска сбрасывается.
// Невидимая: переключается только флаг WasVisible — позиция и время
// НЕ обновляются (память хранит последнее подтвержденное наблюдение).
func (tm *TargetMemory) RecordSighting(id EntityID, pos vec.Vec2Float, faction Faction, visible bool, now time.Time) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	record, exists := tm.records[id]
	if !exists {
		record = &MemoryRecord{
			ID:               id,
			Faction:          faction,
			LastSeenPosition: pos,
			LastSeenTime:     now,
			WasVisible:       visible,
		}
		tm.records[id] = record
		return
	}

	if visible {
		record.LastSeenPosition = pos
		record.LastSeenTime = now
		record.WasVisible = true
		record.SearchAttempts = 0
	} else {
		record.WasVisible = false
	}
}

// Get возвращает копию записи памяти по цели
func (tm *TargetMemory) Get(id EntityID) (MemoryRecord, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	record, exists := tm.records[id]
	if !exists {
		return MemoryRecord{}, false
	}
	return *record, true
}

// Records возвращает копии всех записей памяти
func (tm *TargetMemory) Records() []MemoryRecord {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	result := make([]MemoryRecord, 0, len(tm.records))
	for _, record := range tm.records {
		result = append(result, *record)
	}
	return result
}

// Count возвращает число записей памяти
func (tm *TargetMemory) Count() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.records)
}

// SearchAroundMemory выполняет раунд поиска вокруг последней известной позиции:
// сканирует живых сущностей фракции записи в радиусе searchRadius от
// LastSeenPosition, видимых из myPosition. Видимость перепроверяется свежим
// рейкастом через RecheckVisibility: прямая фаза этого же запроса уже записала
// «не видно» под тот же ключ кеша. Возвращает ближайшего найденного кандидата;
// при полном провале раунда счетчик попыток записи увеличивается.
func (tm *TargetMemory) SearchAroundMemory(record MemoryRecord, myPosition vec.Vec2Float, index *SpatialIndex, vision *VisibilityCache, probe LineOfSightProbe, searchRadius float64, now time.Time) (Candidate, bool) {
	candidates := index.QueryRadius(record.LastSeenPosition, searchRadius, QueryFilter{
		Factions:  []Faction{record.Faction},
		AliveOnly: true,
	})

	for _, candidate := range candidates {
		vis := vision.RecheckVisibility(myPosition, candidate.Snapshot.Position, candidate.Snapshot.ID, probe, now)
		if vis.Visible {
			return candidate, true
		}
	}

	// Раунд завершился безрезультатно — тратим одну попытку поиска
	tm.markSearchFailed(record.ID)
	return Candidate{}, false
}

// markSearchFailed увеличивает счетчик неудачных раундов поиска
func (tm *TargetMemory) markSearchFailed(id EntityID) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if record, exists := tm.records[id]; exists {
		record.SearchAttempts++
	}
}

// Forget удаляет запись памяти по цели
func (tm *TargetMemory) Forget(id EntityID) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.records, id)
}

// SweepExpired удаляет записи: старше memoryDuration, с исчерпанными
// попытками поиска или с невалидной сущностью. Возвращает число удаленных.
// Запускается на фиксированной каденции (например, каждые 2 секунды),
// независимо от частоты запросов агентов.
func (tm *TargetMemory) SweepExpired(now time.Time) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	removed := 0
	for id, record := range tm.records {
		expired := now.Sub(record.LastSeenTime) > tm.memoryDuration
		exhausted := record.SearchAttempts >= tm.maxSearchAttempts

		invalid := false
		if tm.provider != nil {
			if _, ok := tm.provider.GetEntity(id); !ok {
				invalid = true
			}
		}

		if expired || exhausted || invalid {
			delete(tm.records, id)
			removed++
		}
	}
	return removed
}

// MemoryDuration возвращает настроенное время жизни записей
func (tm *TargetMemory) MemoryDuration() time.Duration {
	return tm.memoryDuration
}
