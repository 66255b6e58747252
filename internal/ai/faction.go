package ai

import (
	"sort"
	"sync"

	"github.com/annel0/mmo-ai/internal/logging"
)

// RelationshipTable — направленный граф «кто кого атакует» по фракциям.
// Таблица статична в пределах сессии: заменяется целиком через SetRelationships,
// никогда не редактируется инкрементально во время работы агентов.
type RelationshipTable struct {
	mu      sync.RWMutex
	attacks map[Faction][]Faction
	warned  map[Faction]bool // фракции, по которым уже логировали отсутствие записи
}

// NewRelationshipTable создает пустую таблицу отношений
func NewRelationshipTable() *RelationshipTable {
	return &RelationshipTable{
		attacks: make(map[Faction][]Faction),
		warned:  make(map[Faction]bool),
	}
}

// DefaultRelationships возвращает стандартную таблицу уровня:
// цветные фракции атакуют игрока и друг друга, игрок атакует всех цветных.
func DefaultRelationships() map[Faction][]Faction {
	colors := []Faction{FactionRed, FactionBlue, FactionGreen, FactionYellow}

	table := make(map[Faction][]Faction)
	table[FactionPlayer] = append([]Faction{}, colors...)
	for _, c := range colors {
		list := []Faction{FactionPlayer}
		for _, other := range colors {
			if other != c {
				list = append(list, other)
			}
		}
		table[c] = list
	}
	return table
}

// SetRelationships атомарно заменяет таблицу целиком.
// Записи «фракция атакует себя» отбрасываются: инвариант таблицы.
func (rt *RelationshipTable) SetRelationships(table map[Faction][]Faction) {
	cleaned := make(map[Faction][]Faction, len(table))
	for attacker, targets := range table {
		list := make([]Faction, 0, len(targets))
		for _, t := range targets {
			if t == attacker {
				continue
			}
			list = append(list, t)
		}
		cleaned[attacker] = list
	}

	rt.mu.Lock()
	rt.attacks = cleaned
	rt.warned = make(map[Faction]bool)
	rt.mu.Unlock()
}

// DoesAttack проверяет, атакует ли attacker фракцию target.
// Фракция никогда не атакует себя. Отсутствующая запись означает
// «не атакует никого» (fail-safe) и логируется один раз.
func (rt *RelationshipTable) DoesAttack(attacker, target Faction) bool {
	if attacker == target {
		return false
	}

	rt.mu.RLock()
	targets, exists := rt.attacks[attacker]
	rt.mu.RUnlock()

	if !exists {
		rt.warnMissing(attacker)
		return false
	}

	for _, t := range targets {
		if t == target {
			return true
		}
	}
	return false
}

// EnemiesOf возвращает множество врагов фракции: объединение её собственного
// списка атак и всех фракций, которые атакуют её саму. Отношение не обязано
// быть симметричным — «кто атакует меня, тот мой враг» действует всегда.
func (rt *RelationshipTable) EnemiesOf(faction Faction) []Faction {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	seen := make(map[Faction]bool)

	for _, t := range rt.attacks[faction] {
		seen[t] = true
	}
	for attacker, targets := range rt.attacks {
		if attacker == faction {
			continue
		}
		for _, t := range targets {
			if t == faction {
				seen[attacker] = true
				break
			}
		}
	}

	enemies := make([]Faction, 0, len(seen))
	for f := range seen {
		if f == faction {
			continue
		}
		enemies = append(enemies, f)
	}

	// Стабильный порядок перечисления фракций для детерминированного выбора цели
	sort.Slice(enemies, func(i, j int) bool { return enemies[i] < enemies[j] })
	return enemies
}

// Snapshot возвращает копию таблицы (для отладочного API)
func (rt *RelationshipTable) Snapshot() map[Faction][]Faction {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	copied := make(map[Faction][]Faction, len(rt.attacks))
	for attacker, targets := range rt.attacks {
		copied[attacker] = append([]Faction{}, targets...)
	}
	return copied
}

// warnMissing логирует отсутствие записи один раз на фракцию
func (rt *RelationshipTable) warnMissing(faction Faction) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.warned[faction] {
		return
	}
	rt.warned[faction] = true
	logging.Warn("Фракция %s отсутствует в таблице отношений, считаем что не атакует никого", faction)
}
