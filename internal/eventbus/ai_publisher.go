package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/annel0/mmo-ai/internal/ai"
	"github.com/annel0/mmo-ai/internal/logging"
)

// AIPublisher транслирует типизированные события AI в шину.
// Реализует ai.Observer и подключается к агентам в точке сборки:
// сама AI-подсистема о шине не знает.
type AIPublisher struct {
	bus    EventBus
	source string
}

// NewAIPublisher создает публикатор событий AI.
func NewAIPublisher(bus EventBus, source string) *AIPublisher {
	if source == "" {
		source = "ai"
	}
	return &AIPublisher{bus: bus, source: source}
}

// OnAIEvent упаковывает событие в Envelope и публикует.
// Вызывается синхронно из тика агента: публикация не блокируется,
// переполнение буфера шины дропает событие, а не тормозит тик.
func (p *AIPublisher) OnAIEvent(ev ai.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.Error("AIPublisher: сериализация события %s: %v", ev.Type, err)
		return
	}

	env := &Envelope{
		ID:            uuid.NewString(),
		Timestamp:     ev.Timestamp,
		Source:        p.source,
		EventType:     string(ev.Type),
		Version:       1,
		CorrelationID: fmt.Sprintf("agent-%d", ev.AgentID),
		Priority:      eventPriority(ev.Type),
		Payload:       payload,
	}

	if err := p.bus.Publish(context.Background(), env); err != nil {
		logging.Warn("AIPublisher: публикация %s: %v", ev.Type, err)
	}
}

// eventPriority — приоритет backpressure по типу события.
// Блокировки и потери цели важнее рутинных смен состояний.
func eventPriority(t ai.EventType) int {
	switch t {
	case ai.EventAgentBlocked:
		return 6
	case ai.EventTargetLost:
		return 5
	case ai.EventTargetAcquired:
		return 4
	default:
		return 2
	}
}
