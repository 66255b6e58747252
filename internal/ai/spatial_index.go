package ai

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/annel0/mmo-ai/internal/vec"
)

// SpatialIndex — равномерная пространственная сетка для быстрого поиска
// сущностей в радиусе. Каждая сущность состоит ровно в одной ячейке,
// равной floor(position / cellSize); членство синхронизируется явными
// вызовами UpdatePosition, а не автоматически.
type SpatialIndex struct {
	cellSize float64
	provider EntityProvider

	mu       sync.RWMutex
	cells    map[vec.Vec2]map[EntityID]struct{}
	entities map[EntityID]*indexedEntity
	nextSeq  uint64
}

// indexedEntity хранит текущую ячейку и порядковый номер регистрации
type indexedEntity struct {
	cell vec.Vec2
	seq  uint64 // порядок регистрации: стабильный тай-брейк при равных дистанциях
}

// QueryFilter сужает результаты радиусного запроса
type QueryFilter struct {
	Factions  []Faction // пусто — любые фракции
	AliveOnly bool
	Exclude   EntityID // исключить себя из результатов
}

// Candidate — кандидат, найденный радиусным запросом
type Candidate struct {
	Snapshot EntitySnapshot
	Distance float64
	seq      uint64
}

// NewSpatialIndex создает пространственный индекс.
// provider используется для перепроверки сущностей при запросах.
func NewSpatialIndex(cellSize float64, provider EntityProvider) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = 64.0
	}
	return &SpatialIndex{
		cellSize: cellSize,
		provider: provider,
		cells:    make(map[vec.Vec2]map[EntityID]struct{}),
		entities: make(map[EntityID]*indexedEntity),
	}
}

// CellSize возвращает размер ячейки сетки
func (si *SpatialIndex) CellSize() float64 {
	return si.cellSize
}

// cellFor возвращает ключ ячейки для мировой позиции
func (si *SpatialIndex) cellFor(pos vec.Vec2Float) vec.Vec2 {
	return vec.Vec2{
		X: int(math.Floor(pos.X / si.cellSize)),
		Y: int(math.Floor(pos.Y / si.cellSize)),
	}
}

// Register добавляет сущность в ячейку для указанной позиции.
// Повторная регистрация уже состоящей в индексе сущности — no-op.
func (si *SpatialIndex) Register(id EntityID, pos vec.Vec2Float) {
	si.mu.Lock()
	defer si.mu.Unlock()

	if _, exists := si.entities[id]; exists {
		return
	}

	cell := si.cellFor(pos)
	si.entities[id] = &indexedEntity{cell: cell, seq: si.nextSeq}
	si.nextSeq++
	si.addToCell(cell, id)
}

// Unregister удаляет сущность из её ячейки; no-op если её нет в индексе
func (si *SpatialIndex) Unregister(id EntityID) {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.removeLocked(id)
}

// UpdatePosition пересчитывает ячейку сущности.
// Если ячейка не изменилась — дешевый быстрый путь без перестановок.
func (si *SpatialIndex) UpdatePosition(id EntityID, newPos vec.Vec2Float) {
	newCell := si.cellFor(newPos)

	si.mu.Lock()
	defer si.mu.Unlock()

	indexed, exists := si.entities[id]
	if !exists {
		// Сущность не была в индексе — регистрируем на месте
		si.entities[id] = &indexedEntity{cell: newCell, seq: si.nextSeq}
		si.nextSeq++
		si.addToCell(newCell, id)
		return
	}

	if indexed.cell == newCell {
		return
	}

	si.removeFromCell(indexed.cell, id)
	indexed.cell = newCell
	si.addToCell(newCell, id)
}

// Contains проверяет, зарегистрирована ли сущность в индексе
func (si *SpatialIndex) Contains(id EntityID) bool {
	si.mu.RLock()
	defer si.mu.RUnlock()
	_, exists := si.entities[id]
	return exists
}

// QueryRadius возвращает всех кандидатов в радиусе radius от center,
// прошедших фильтр, по возрастанию дистанции. Граница входит в результат
// (distance == radius — включительно). Невалидные сущности отбрасываются
// молча и лениво удаляются из своих ячеек (самовосстановление индекса).
func (si *SpatialIndex) QueryRadius(center vec.Vec2Float, radius float64, filter QueryFilter) []Candidate {
	if radius < 0 {
		return nil
	}

	// Окрестность не меньше 3×3 ячеек, масштабированная под радиус
	span := int(math.Ceil(radius / si.cellSize))
	if span < 1 {
		span = 1
	}
	centerCell := si.cellFor(center)

	var factionSet map[Faction]bool
	if len(filter.Factions) > 0 {
		factionSet = make(map[Faction]bool, len(filter.Factions))
		for _, f := range filter.Factions {
			factionSet[f] = true
		}
	}

	radiusSq := radius * radius
	var stale []EntityID
	result := make([]Candidate, 0)

	si.mu.RLock()
	for cx := centerCell.X - span; cx <= centerCell.X+span; cx++ {
		for cy := centerCell.Y - span; cy <= centerCell.Y+span; cy++ {
			cell, exists := si.cells[vec.Vec2{X: cx, Y: cy}]
			if !exists {
				continue
			}
			for id := range cell {
				if id == filter.Exclude {
					continue
				}
				snap, ok := si.provider.GetEntity(id)
				if !ok {
					stale = append(stale, id)
					continue
				}
				if filter.AliveOnly && !snap.Alive {
					continue
				}
				if factionSet != nil && !factionSet[snap.Faction] {
					continue
				}
				distSq := snap.Position.DistanceSqTo(center)
				if distSq > radiusSq {
					continue
				}
				result = append(result, Candidate{
					Snapshot: snap,
					Distance: math.Sqrt(distSq),
					seq:      si.entities[id].seq,
				})
			}
		}
	}
	si.mu.RUnlock()

	// Ленивое удаление протухших ссылок
	if len(stale) > 0 {
		si.mu.Lock()
		for _, id := range stale {
			si.removeLocked(id)
		}
		si.mu.Unlock()
	}

	// Возрастание дистанции; при равных дистанциях — порядок регистрации
	sort.Slice(result, func(i, j int) bool {
		if result[i].Distance != result[j].Distance {
			return result[i].Distance < result[j].Distance
		}
		return result[i].seq < result[j].seq
	})

	return result
}

// EntityCount возвращает количество индексированных сущностей
func (si *SpatialIndex) EntityCount() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.entities)
}

// CellCount возвращает количество активных ячеек
func (si *SpatialIndex) CellCount() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.cells)
}

// Stats возвращает строку статистики индекса
func (si *SpatialIndex) Stats() string {
	si.mu.RLock()
	defer si.mu.RUnlock()

	maxPerCell := 0
	total := 0
	for _, cell := range si.cells {
		count := len(cell)
		total += count
		if count > maxPerCell {
			maxPerCell = count
		}
	}

	avg := 0.0
	if len(si.cells) > 0 {
		avg = float64(total) / float64(len(si.cells))
	}

	return fmt.Sprintf("SpatialIndex: %d сущностей, %d ячеек, в среднем %.2f/ячейку, максимум %d/ячейку",
		len(si.entities), len(si.cells), avg, maxPerCell)
}

// === Вспомогательные методы (вызываются под write lock) ===

func (si *SpatialIndex) addToCell(cell vec.Vec2, id EntityID) {
	members, exists := si.cells[cell]
	if !exists {
		members = make(map[EntityID]struct{})
		si.cells[cell] = members
	}
	members[id] = struct{}{}
}

func (si *SpatialIndex) removeFromCell(cell vec.Vec2, id EntityID) {
	if members, exists := si.cells[cell]; exists {
		delete(members, id)
		if len(members) == 0 {
			delete(si.cells, cell)
		}
	}
}

func (si *SpatialIndex) removeLocked(id EntityID) {
	indexed, exists := si.entities[id]
	if !exists {
		return
	}
	delete(si.entities, id)
	si.removeFromCell(indexed.cell, id)
}
