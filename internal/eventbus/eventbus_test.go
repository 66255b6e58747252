package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-ai/internal/ai"
)

// collector потокобезопасно накапливает принятые события
type collector struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collector) handler(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collector) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.count() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ожидалось %d событий, получено %d", n, c.count())
}

func TestMemoryBus_PublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(64)
	col := &collector{}

	_, err := bus.Subscribe(context.Background(), Filter{}, col.handler)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{
		ID:        "ev-1",
		Source:    "ai",
		EventType: "target_acquired",
	}))

	col.waitFor(t, 1)
	stats := bus.Metrics()
	assert.Equal(t, uint64(1), stats.Published)
}

func TestMemoryBus_FilterByTypeAndSource(t *testing.T) {
	bus := NewMemoryBus(64)
	blocked := &collector{}
	fromSim := &collector{}

	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{"agent_blocked"}}, blocked.handler)
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), Filter{Sources: []string{"sim"}}, fromSim.handler)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "agent_blocked", Source: "ai"}))
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "target_lost", Source: "ai"}))
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "tick", Source: "sim"}))

	blocked.waitFor(t, 1)
	fromSim.waitFor(t, 1)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, blocked.count(), "Фильтр по типу пропускает только agent_blocked")
	assert.Equal(t, 1, fromSim.count(), "Фильтр по источнику пропускает только sim")
}

func TestMemoryBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus(64)
	col := &collector{}

	sub, err := bus.Subscribe(context.Background(), Filter{}, col.handler)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "a"}))
	col.waitFor(t, 1)

	sub.Unsubscribe()
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "b"}))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, col.count(), "После отписки события не доставляются")
}

func TestMemoryBus_LowPriorityNeverBlocksPublisher(t *testing.T) {
	// Крошечный буфер: часть событий низкого приоритета дропается,
	// но Publish обязан вернуться сразу и без ошибки в любом случае
	bus := NewMemoryBus(1)

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			assert.NoError(t, bus.Publish(ctx, &Envelope{EventType: "spam", Priority: 2}))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish низкого приоритета заблокировался на полном буфере")
	}

	stats := bus.Metrics()
	assert.Equal(t, uint64(100), stats.Published+stats.Dropped, "Каждое событие либо принято, либо дропнуто")
}

func TestFormatAIEvent(t *testing.T) {
	payload, err := json.Marshal(ai.Event{
		Type:    ai.EventStateChanged,
		AgentID: 7,
		From:    ai.StateSeekingTarget,
		To:      ai.StatePathfinding,
	})
	require.NoError(t, err)

	line, ok := formatAIEvent(&Envelope{EventType: string(ai.EventStateChanged), Payload: payload})
	require.True(t, ok)
	assert.Contains(t, line, "агент 7")
	assert.Contains(t, line, "seeking_target -> pathfinding")

	payload, err = json.Marshal(ai.Event{Type: ai.EventTargetAcquired, AgentID: 3, TargetID: 9, Priority: 0.42})
	require.NoError(t, err)
	line, ok = formatAIEvent(&Envelope{EventType: string(ai.EventTargetAcquired), Payload: payload})
	require.True(t, ok)
	assert.Contains(t, line, "захватил цель 9")

	// Не-AI событие остается конвертом
	_, ok = formatAIEvent(&Envelope{EventType: "tick", Payload: []byte(`{}`)})
	assert.False(t, ok)

	// Битая нагрузка не роняет слушателя
	_, ok = formatAIEvent(&Envelope{EventType: string(ai.EventTargetLost), Payload: []byte(`{`)})
	assert.False(t, ok)
}

func TestMatchFilter(t *testing.T) {
	ev := &Envelope{EventType: "target_lost", Source: "ai"}

	assert.True(t, matchFilter(ev, Filter{}))
	assert.True(t, matchFilter(ev, Filter{Types: []string{"target_lost"}}))
	assert.True(t, matchFilter(ev, Filter{Sources: []string{"ai"}}))
	assert.False(t, matchFilter(ev, Filter{Types: []string{"tick"}}))
	assert.False(t, matchFilter(ev, Filter{Types: []string{"target_lost"}, Sources: []string{"sim"}}))
}
