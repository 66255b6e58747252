package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-ai/internal/ai"
	"github.com/annel0/mmo-ai/internal/config"
)

func TestSimulation_StepRunsFullTick(t *testing.T) {
	simCfg := config.SimConfig{
		AgentsPerFaction: 2,
		Players:          1,
		WorldSize:        1024,
		ObstacleCount:    10,
		Seed:             42,
		TickRateHz:       20,
	}

	sim, err := NewSimulation(simCfg, ai.DefaultConfig(), nil, nil)
	require.NoError(t, err)

	// 4 цветные фракции по 2 агента
	assert.Len(t, sim.World().ListAgents(), 8)
	// 8 агентов + 1 игрок
	assert.Len(t, sim.World().Snapshots(), 9)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	dt := 1.0 / float64(simCfg.TickRateHz)
	for i := 0; i < 50; i++ {
		now = now.Add(time.Duration(dt * float64(time.Second)))
		sim.Step(dt, now)
	}

	// За 2.5 секунды агенты вышли из Idle и начали искать цели
	counters := sim.Selector().Counters().Snapshot(0)
	assert.NotZero(t, counters.Queries, "Агенты опрашивают селектор")

	for _, agent := range sim.World().ListAgents() {
		assert.NotEqual(t, ai.NavState(-1), agent.CurrentState())
	}
}

func TestSimulation_DeterministicSpawnForSeed(t *testing.T) {
	simCfg := config.SimConfig{
		AgentsPerFaction: 3,
		Players:          2,
		WorldSize:        1024,
		ObstacleCount:    15,
		Seed:             7,
		TickRateHz:       20,
	}

	a, err := NewSimulation(simCfg, ai.DefaultConfig(), nil, nil)
	require.NoError(t, err)
	b, err := NewSimulation(simCfg, ai.DefaultConfig(), nil, nil)
	require.NoError(t, err)

	snapsA := a.World().Snapshots()
	snapsB := b.World().Snapshots()
	require.Equal(t, len(snapsA), len(snapsB))
	for i := range snapsA {
		assert.Equal(t, snapsA[i].Position, snapsB[i].Position, "Одинаковый seed — одинаковая расстановка")
		assert.Equal(t, snapsA[i].Faction, snapsB[i].Faction)
	}
}
