package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/annel0/mmo-ai/internal/ai"
	"github.com/annel0/mmo-ai/internal/config"
	"github.com/annel0/mmo-ai/internal/logging"
	"github.com/annel0/mmo-ai/internal/physics"
	"github.com/annel0/mmo-ai/internal/trace"
	"github.com/annel0/mmo-ai/internal/vec"
)

// sweepInterval — каденция чистки кеша видимости и памяти целей.
// Фиксирована и не зависит от частоты запросов агентов.
const sweepInterval = 2 * time.Second

// traceEvery — каждый N-й тик состояния агентов пишутся в трассу
const traceEvery = 10

// Simulation — замкнутая симуляция: мир, селектор целей, агенты,
// поисковик пути и боевая система. Работает фиксированным тиком.
type Simulation struct {
	world    *World
	selector *ai.TargetSelector
	paths    *GridPathfinder
	agents   []*ai.Agent
	recorder *trace.Recorder // может быть nil

	tickRate  int
	lastSweep time.Time
	tick      uint64
}

// obstacleProbe адаптирует поле препятствий под зонд линии видимости
type obstacleProbe struct {
	field *physics.ObstacleField
}

func (p obstacleProbe) Raycast(from, to vec.Vec2Float) (ai.RaycastHit, bool) {
	hit, ok := p.field.Raycast(from, to)
	if !ok {
		return ai.RaycastHit{}, false
	}
	return ai.RaycastHit{
		Obstacle: true,
		Distance: hit.Distance,
		Point:    hit.Point,
	}, true
}

// NewSimulation собирает симуляцию по конфигурации.
// observer и recorder могут быть nil.
func NewSimulation(simCfg config.SimConfig, aiCfg ai.Config, observer ai.Observer, recorder *trace.Recorder) (*Simulation, error) {
	simCfg = simCfg.Defaults()

	obstacles := physics.NewObstacleField()
	scenario := NewScenario(simCfg.Seed)
	scenario.PlaceObstacles(obstacles, simCfg.WorldSize, simCfg.ObstacleCount)

	world := NewWorld(simCfg.WorldSize, obstacles)

	selector, err := ai.NewTargetSelector(aiCfg, ai.SelectorDeps{
		Provider: world,
		Probe:    obstacleProbe{field: obstacles},
	})
	if err != nil {
		return nil, fmt.Errorf("создание селектора: %w", err)
	}

	paths := NewGridPathfinder(obstacles, simCfg.WorldSize, aiCfg.GridCellSize/2, 16)

	agents, err := scenario.SpawnSquads(world, selector, aiCfg, paths, simCfg.AgentsPerFaction, simCfg.Players, observer)
	if err != nil {
		return nil, err
	}

	return &Simulation{
		world:    world,
		selector: selector,
		paths:    paths,
		agents:   agents,
		recorder: recorder,
		tickRate: simCfg.TickRateHz,
	}, nil
}

// World возвращает мир симуляции
func (s *Simulation) World() *World { return s.world }

// Selector возвращает селектор целей
func (s *Simulation) Selector() *ai.TargetSelector { return s.selector }

// Pathfinder возвращает поисковик пути
func (s *Simulation) Pathfinder() *GridPathfinder { return s.paths }

// Run крутит цикл симуляции до отмены контекста
func (s *Simulation) Run(ctx context.Context) {
	dt := 1.0 / float64(s.tickRate)
	ticker := time.NewTicker(time.Duration(float64(time.Second) * dt))
	defer ticker.Stop()

	logging.Info("▶️ Симуляция запущена: тик %d Гц, агентов %d", s.tickRate, len(s.agents))

	for {
		select {
		case <-ctx.Done():
			logging.Info("⏹️ Симуляция остановлена (тиков: %d)", s.tick)
			return
		case <-ticker.C:
			s.Step(dt, time.Now())
		}
	}
}

// Step выполняет один тик симуляции
func (s *Simulation) Step(dt float64, now time.Time) {
	s.tick++

	// 1. Поисковик пути отрабатывает накопленные запросы
	s.paths.Pump(now)

	// 2. Решения агентов
	for _, agent := range s.agents {
		agent.Update(dt)
	}

	// 3. Бой: намерение атаки превращается в урон
	s.applyCombat(dt)

	// 4. Физика
	s.world.Step(dt)

	// 5. Синхронизация пространственного индекса
	for _, snap := range s.world.Snapshots() {
		s.selector.UpdateTargetPosition(snap.ID, snap.Position)
	}

	// 6. Чистки на фиксированной каденции
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.lastSweep = now
		expired := s.selector.Vision().SweepExpired(now)
		forgotten := s.selector.Memory().SweepExpired(now)
		if expired > 0 || forgotten > 0 {
			logging.Trace("Чистка: кеш видимости -%d, память -%d", expired, forgotten)
		}
	}

	// 7. Трасса решений
	if s.recorder != nil && s.tick%traceEvery == 0 {
		for _, agent := range s.agents {
			snap, ok := s.world.GetEntity(agent.ID())
			if !ok {
				continue
			}
			if err := s.recorder.Snapshot(agent, snap, now); err != nil {
				logging.Warn("Трасса: запись агента %d: %v", agent.ID(), err)
			}
		}
	}
}

// applyCombat наносит урон целям атакующих агентов
func (s *Simulation) applyCombat(dt float64) {
	for _, agent := range s.agents {
		dec := agent.ComputeDecision()
		if !dec.WantsToAttack {
			continue
		}
		target, ok := agent.CurrentTarget()
		if !ok {
			continue
		}
		attacker, ok := s.world.GetEntity(agent.ID())
		if !ok || !attacker.Alive {
			continue
		}
		// Урон в секунду равен боевой характеристике атакующего
		s.world.ApplyDamage(target.ID, attacker.AttackStat*dt)
	}
}
