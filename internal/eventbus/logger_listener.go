package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/annel0/mmo-ai/internal/ai"
	"github.com/annel0/mmo-ai/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в отдельный
// файл компонента eventbus. Известные события AI разворачиваются в доменную
// строку, остальные логируются конвертом. Функция неблокирующая.
func StartLoggingListener(bus EventBus) error {
	logger := logging.GetComponentLogger("eventbus")
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		if line, ok := formatAIEvent(ev); ok {
			logger.Debug("[EventBus] %s", line)
			return
		}
		logger.Debug("[EventBus] %s %s src=%s corr=%s prio=%d size=%dB",
			ev.ID, ev.EventType, ev.Source, ev.CorrelationID, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return err
	}
	logging.Info("🪵 LoggingListener: подписка на все события активирована")
	return nil
}

// formatAIEvent разворачивает полезную нагрузку событий AI в читаемую строку.
// Неизвестный тип или нечитаемая нагрузка трактуются как не-AI событие.
func formatAIEvent(env *Envelope) (string, bool) {
	t := ai.EventType(env.EventType)
	switch t {
	case ai.EventTargetAcquired, ai.EventTargetLost, ai.EventAgentBlocked, ai.EventStateChanged:
	default:
		return "", false
	}

	var ev ai.Event
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return "", false
	}

	switch t {
	case ai.EventTargetAcquired:
		return fmt.Sprintf("🎯 агент %d захватил цель %d (приоритет %.2f)", ev.AgentID, ev.TargetID, ev.Priority), true
	case ai.EventTargetLost:
		return fmt.Sprintf("🌫️ агент %d потерял цель %d", ev.AgentID, ev.TargetID), true
	case ai.EventAgentBlocked:
		return fmt.Sprintf("🧱 агент %d заблокирован в (%.0f, %.0f)", ev.AgentID, ev.Position.X, ev.Position.Y), true
	case ai.EventStateChanged:
		return fmt.Sprintf("агент %d: переход %s -> %s", ev.AgentID, ev.From, ev.To), true
	}
	return "", false
}
