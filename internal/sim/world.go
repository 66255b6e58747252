package sim

import (
	"sync"

	"github.com/annel0/mmo-ai/internal/ai"
	"github.com/annel0/mmo-ai/internal/physics"
	"github.com/annel0/mmo-ai/internal/vec"
)

// simEntity — сущность симуляции: позиция, здоровье, фракция.
// Доступ только через мир под его мьютексом.
type simEntity struct {
	id        ai.EntityID
	faction   ai.Faction
	class     ai.Classification
	position  vec.Vec2Float
	velocity  vec.Vec2Float // наблюдаемая скорость за прошлый шаг
	desired   vec.Vec2Float // желаемая скорость от AI/игрока
	alive     bool
	health    float64
	maxHealth float64
	attack    float64
}

// World — мир симуляции: сущности, агенты и препятствия.
// Реализует ai.EntityProvider и api.AgentSource.
type World struct {
	mu        sync.RWMutex
	entities  map[ai.EntityID]*simEntity
	order     []ai.EntityID // стабильный порядок обхода
	agents    map[ai.EntityID]*ai.Agent
	obstacles *physics.ObstacleField
	size      float64
	nextID    uint64
}

// NewWorld создает мир заданного размера с полем препятствий
func NewWorld(size float64, obstacles *physics.ObstacleField) *World {
	return &World{
		entities:  make(map[ai.EntityID]*simEntity),
		agents:    make(map[ai.EntityID]*ai.Agent),
		obstacles: obstacles,
		size:      size,
	}
}

// Size возвращает размер мира
func (w *World) Size() float64 { return w.size }

// Obstacles возвращает поле препятствий мира
func (w *World) Obstacles() *physics.ObstacleField { return w.obstacles }

// Spawn создает сущность и возвращает её ID
func (w *World) Spawn(faction ai.Faction, class ai.Classification, pos vec.Vec2Float, health, attack float64) ai.EntityID {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := ai.EntityID(w.nextID)
	w.entities[id] = &simEntity{
		id:        id,
		faction:   faction,
		class:     class,
		position:  pos,
		alive:     true,
		health:    health,
		maxHealth: health,
		attack:    attack,
	}
	w.order = append(w.order, id)
	return id
}

// AttachAgent привязывает навигационный автомат к сущности
func (w *World) AttachAgent(agent *ai.Agent) {
	w.mu.Lock()
	w.agents[agent.ID()] = agent
	w.mu.Unlock()
}

// GetEntity возвращает снимок сущности (ai.EntityProvider)
func (w *World) GetEntity(id ai.EntityID) (ai.EntitySnapshot, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	e, ok := w.entities[id]
	if !ok {
		return ai.EntitySnapshot{}, false
	}
	return w.snapshotLocked(e), true
}

func (w *World) snapshotLocked(e *simEntity) ai.EntitySnapshot {
	ratio := 0.0
	if e.maxHealth > 0 {
		ratio = e.health / e.maxHealth
	}
	return ai.EntitySnapshot{
		ID:          e.id,
		Faction:     e.faction,
		Position:    e.position,
		Velocity:    e.velocity,
		Alive:       e.alive,
		HealthRatio: ratio,
		AttackStat:  e.attack,
		Class:       e.class,
	}
}

// Snapshots возвращает снимки всех сущностей в порядке создания
func (w *World) Snapshots() []ai.EntitySnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]ai.EntitySnapshot, 0, len(w.order))
	for _, id := range w.order {
		if e, ok := w.entities[id]; ok {
			result = append(result, w.snapshotLocked(e))
		}
	}
	return result
}

// ListAgents возвращает все привязанные агенты (api.AgentSource)
func (w *World) ListAgents() []*ai.Agent {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]*ai.Agent, 0, len(w.agents))
	for _, agent := range w.agents {
		result = append(result, agent)
	}
	return result
}

// GetAgent возвращает агента по ID (api.AgentSource)
func (w *World) GetAgent(id ai.EntityID) (*ai.Agent, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	agent, ok := w.agents[id]
	return agent, ok
}

// Sink возвращает приемник желаемой скорости для сущности
func (w *World) Sink(id ai.EntityID) ai.VelocitySink {
	return &entitySink{world: w, id: id}
}

// SetDesired устанавливает желаемую скорость сущности
func (w *World) SetDesired(id ai.EntityID, v vec.Vec2Float) {
	w.mu.Lock()
	if e, ok := w.entities[id]; ok {
		e.desired = v
	}
	w.mu.Unlock()
}

// ApplyDamage наносит урон сущности; при нулевом здоровье помечает мертвой
func (w *World) ApplyDamage(id ai.EntityID, damage float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entities[id]
	if !ok || !e.alive {
		return
	}

	e.health -= damage
	if e.health <= 0 {
		e.health = 0
		e.alive = false
		e.desired = vec.Vec2Float{}
		e.velocity = vec.Vec2Float{}
	}
}

// Revive возвращает мертвую сущность в строй на новой позиции
func (w *World) Revive(id ai.EntityID, pos vec.Vec2Float) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e, ok := w.entities[id]; ok {
		e.position = pos
		e.health = e.maxHealth
		e.alive = true
	}
}

// Step интегрирует позиции за dt секунд. Движение в препятствие или за
// границу мира не выполняется: наблюдаемая скорость остается нулевой,
// что и позволяет агентам замечать застревание.
func (w *World) Step(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range w.order {
		e, ok := w.entities[id]
		if !ok || !e.alive {
			continue
		}

		if e.desired.IsZero() {
			e.velocity = vec.Vec2Float{}
			continue
		}

		next := e.position.Add(e.desired.Mul(dt))

		blocked := next.X < 0 || next.Y < 0 || next.X >= w.size || next.Y >= w.size
		if !blocked && w.obstacles != nil && w.obstacles.Blocked(next) {
			blocked = true
		}

		if blocked {
			e.velocity = vec.Vec2Float{}
			continue
		}

		e.velocity = next.Sub(e.position).Mul(1.0 / dt)
		e.position = next
	}
}

// entitySink направляет желаемую скорость агента в его сущность
type entitySink struct {
	world *World
	id    ai.EntityID
}

func (s *entitySink) SetDesiredVelocity(v vec.Vec2Float) {
	s.world.SetDesired(s.id, v)
}

func (s *entitySink) Stop() {
	s.world.SetDesired(s.id, vec.Vec2Float{})
}
