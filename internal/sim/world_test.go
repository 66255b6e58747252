package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-ai/internal/ai"
	"github.com/annel0/mmo-ai/internal/physics"
	"github.com/annel0/mmo-ai/internal/vec"
)

func TestWorld_SpawnAndSnapshot(t *testing.T) {
	world := NewWorld(1024, physics.NewObstacleField())

	id := world.Spawn(ai.FactionRed, ai.ClassElite, vec.Vec2Float{X: 100, Y: 100}, 80, 15)
	require.NotZero(t, id)

	snap, ok := world.GetEntity(id)
	require.True(t, ok)
	assert.Equal(t, ai.FactionRed, snap.Faction)
	assert.Equal(t, ai.ClassElite, snap.Class)
	assert.True(t, snap.Alive)
	assert.InDelta(t, 1.0, snap.HealthRatio, 1e-9)
	assert.InDelta(t, 15.0, snap.AttackStat, 1e-9)

	_, ok = world.GetEntity(9999)
	assert.False(t, ok)
}

func TestWorld_SnapshotsFollowSpawnOrder(t *testing.T) {
	world := NewWorld(1024, physics.NewObstacleField())

	first := world.Spawn(ai.FactionRed, ai.ClassGeneric, vec.Vec2Float{X: 10, Y: 10}, 100, 10)
	second := world.Spawn(ai.FactionBlue, ai.ClassGeneric, vec.Vec2Float{X: 20, Y: 20}, 100, 10)

	snaps := world.Snapshots()
	require.Len(t, snaps, 2)
	assert.Equal(t, first, snaps[0].ID)
	assert.Equal(t, second, snaps[1].ID)
}

func TestWorld_StepIntegratesDesiredVelocity(t *testing.T) {
	world := NewWorld(1024, physics.NewObstacleField())
	id := world.Spawn(ai.FactionRed, ai.ClassGeneric, vec.Vec2Float{X: 100, Y: 100}, 100, 10)

	world.SetDesired(id, vec.Vec2Float{X: 50, Y: 0})
	world.Step(0.5)

	snap, _ := world.GetEntity(id)
	assert.InDelta(t, 125.0, snap.Position.X, 1e-9)
	assert.InDelta(t, 50.0, snap.Velocity.X, 1e-9, "Наблюдаемая скорость равна фактическому смещению за шаг")

	// Остановка обнуляет наблюдаемую скорость
	world.SetDesired(id, vec.Vec2Float{})
	world.Step(0.5)
	snap, _ = world.GetEntity(id)
	assert.True(t, snap.Velocity.IsZero())
	assert.InDelta(t, 125.0, snap.Position.X, 1e-9)
}

func TestWorld_BlockedMoveKeepsVelocityZero(t *testing.T) {
	obstacles := physics.NewObstacleField()
	obstacles.Add(physics.NewAABB(vec.Vec2Float{X: 150, Y: 100}, 20, 20))
	world := NewWorld(1024, obstacles)

	id := world.Spawn(ai.FactionRed, ai.ClassGeneric, vec.Vec2Float{X: 125, Y: 100}, 100, 10)
	world.SetDesired(id, vec.Vec2Float{X: 80, Y: 0})
	world.Step(0.5) // следующая точка — внутри препятствия

	snap, _ := world.GetEntity(id)
	assert.InDelta(t, 125.0, snap.Position.X, 1e-9, "Движение в препятствие не выполняется")
	assert.True(t, snap.Velocity.IsZero(), "Нулевая наблюдаемая скорость сигналит о застревании")

	// Выход за границу мира блокируется так же
	edge := world.Spawn(ai.FactionRed, ai.ClassGeneric, vec.Vec2Float{X: 5, Y: 5}, 100, 10)
	world.SetDesired(edge, vec.Vec2Float{X: -80, Y: 0})
	world.Step(0.5)
	snap, _ = world.GetEntity(edge)
	assert.InDelta(t, 5.0, snap.Position.X, 1e-9)
}

func TestWorld_DamageKillsAndReviveRestores(t *testing.T) {
	world := NewWorld(1024, physics.NewObstacleField())
	id := world.Spawn(ai.FactionRed, ai.ClassGeneric, vec.Vec2Float{X: 100, Y: 100}, 50, 10)

	world.ApplyDamage(id, 20)
	snap, _ := world.GetEntity(id)
	assert.True(t, snap.Alive)
	assert.InDelta(t, 0.6, snap.HealthRatio, 1e-9)

	world.ApplyDamage(id, 100)
	snap, _ = world.GetEntity(id)
	assert.False(t, snap.Alive)
	assert.Zero(t, snap.HealthRatio)

	// Урон по мертвому — no-op
	world.ApplyDamage(id, 10)

	// Мертвый не двигается
	world.SetDesired(id, vec.Vec2Float{X: 80, Y: 0})
	world.Step(0.5)
	snap, _ = world.GetEntity(id)
	assert.InDelta(t, 100.0, snap.Position.X, 1e-9)

	world.Revive(id, vec.Vec2Float{X: 200, Y: 200})
	snap, _ = world.GetEntity(id)
	assert.True(t, snap.Alive)
	assert.InDelta(t, 1.0, snap.HealthRatio, 1e-9)
	assert.Equal(t, vec.Vec2Float{X: 200, Y: 200}, snap.Position)
}

func TestWorld_SinkRoutesDesiredVelocity(t *testing.T) {
	world := NewWorld(1024, physics.NewObstacleField())
	id := world.Spawn(ai.FactionRed, ai.ClassGeneric, vec.Vec2Float{X: 100, Y: 100}, 100, 10)

	sink := world.Sink(id)
	sink.SetDesiredVelocity(vec.Vec2Float{X: 40, Y: 0})
	world.Step(1.0)

	snap, _ := world.GetEntity(id)
	assert.InDelta(t, 140.0, snap.Position.X, 1e-9)

	sink.Stop()
	world.Step(1.0)
	snap, _ = world.GetEntity(id)
	assert.InDelta(t, 140.0, snap.Position.X, 1e-9)
}
