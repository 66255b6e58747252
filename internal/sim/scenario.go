package sim

import (
	"fmt"
	"math/rand"

	"github.com/annel0/mmo-ai/internal/ai"
	"github.com/annel0/mmo-ai/internal/logging"
	"github.com/annel0/mmo-ai/internal/physics"
	"github.com/annel0/mmo-ai/internal/util"
	"github.com/annel0/mmo-ai/internal/vec"
)

// Scenario детерминированно наполняет мир: препятствия по шуму Перлина,
// отряды фракций по углам, игроки в центре. Один сид — одна и та же карта.
type Scenario struct {
	seed  int64
	rng   *rand.Rand
	noise *util.NoiseField
}

// NewScenario создает генератор сценария с указанным сидом
func NewScenario(seed int64) *Scenario {
	return &Scenario{
		seed:  seed,
		rng:   rand.New(rand.NewSource(seed)),
		noise: util.NewNoiseField(seed),
	}
}

// PlaceObstacles добавляет count препятствий в местах, где шум Перлина
// выше порога. Центральная область остается свободной под спавн игроков.
func (s *Scenario) PlaceObstacles(field *physics.ObstacleField, worldSize float64, count int) {
	center := vec.Vec2Float{X: worldSize / 2, Y: worldSize / 2}
	clearRadius := worldSize * 0.1

	placed := 0
	for attempts := 0; placed < count && attempts < count*20; attempts++ {
		x := s.rng.Float64() * worldSize
		y := s.rng.Float64() * worldSize

		// Шум отбирает «скалистые» области карты
		if s.noise.At(x/worldSize*4, y/worldSize*4) < 0.55 {
			continue
		}

		pos := vec.Vec2Float{X: x, Y: y}
		if pos.DistanceTo(center) < clearRadius {
			continue
		}

		halfW := 10 + s.rng.Float64()*25
		halfH := 10 + s.rng.Float64()*25
		field.Add(physics.NewAABB(pos, halfW, halfH))
		placed++
	}

	logging.Info("🗺️ Сценарий: размещено %d препятствий (сид %d)", placed, s.seed)
}

// SpawnSquads создает отряды цветных фракций по углам мира и игроков
// в центре, привязывая к каждому NPC навигационный автомат.
func (s *Scenario) SpawnSquads(world *World, selector *ai.TargetSelector, cfg ai.Config, paths ai.PathService, perFaction, players int, observer ai.Observer) ([]*ai.Agent, error) {
	worldSize := world.Size()

	corners := map[ai.Faction]vec.Vec2Float{
		ai.FactionRed:    {X: worldSize * 0.15, Y: worldSize * 0.15},
		ai.FactionBlue:   {X: worldSize * 0.85, Y: worldSize * 0.15},
		ai.FactionGreen:  {X: worldSize * 0.15, Y: worldSize * 0.85},
		ai.FactionYellow: {X: worldSize * 0.85, Y: worldSize * 0.85},
	}

	roles := []ai.AgentRole{ai.RoleMelee, ai.RoleRanged, ai.RoleScout}

	var agents []*ai.Agent
	for _, faction := range []ai.Faction{ai.FactionRed, ai.FactionBlue, ai.FactionGreen, ai.FactionYellow} {
		anchor := corners[faction]

		for i := 0; i < perFaction; i++ {
			pos := s.freeSpot(world, anchor, worldSize*0.08)
			role := roles[i%len(roles)]

			class := ai.ClassGeneric
			switch {
			case i == 0:
				class = ai.ClassBoss
			case i%4 == 1:
				class = ai.ClassElite
			}

			id := world.Spawn(faction, class, pos, 100, 10+s.rng.Float64()*20)
			selector.RegisterTarget(id, faction)

			agent, err := ai.NewAgent(id, role, faction, cfg, ai.AgentDeps{
				Selector: selector,
				Provider: world,
				Paths:    paths,
				Sink:     world.Sink(id),
				Events:   observer,
			})
			if err != nil {
				return nil, fmt.Errorf("создание агента %d: %w", id, err)
			}
			world.AttachAgent(agent)
			agents = append(agents, agent)
		}
	}

	// Игроки в центре: цели без собственных автоматов
	center := vec.Vec2Float{X: worldSize / 2, Y: worldSize / 2}
	for i := 0; i < players; i++ {
		pos := s.freeSpot(world, center, worldSize*0.06)
		id := world.Spawn(ai.FactionPlayer, ai.ClassPlayer, pos, 200, 25)
		selector.RegisterTarget(id, ai.FactionPlayer)
	}

	logging.Info("👥 Сценарий: %d NPC (%d на фракцию), %d игроков", len(agents), perFaction, players)
	return agents, nil
}

// freeSpot подбирает позицию около якоря вне препятствий
func (s *Scenario) freeSpot(world *World, anchor vec.Vec2Float, spread float64) vec.Vec2Float {
	for i := 0; i < 32; i++ {
		pos := vec.Vec2Float{
			X: anchor.X + (s.rng.Float64()*2-1)*spread,
			Y: anchor.Y + (s.rng.Float64()*2-1)*spread,
		}
		if pos.X < 0 || pos.Y < 0 || pos.X >= world.Size() || pos.Y >= world.Size() {
			continue
		}
		if world.Obstacles() != nil && world.Obstacles().Blocked(pos) {
			continue
		}
		return pos
	}
	return anchor
}
