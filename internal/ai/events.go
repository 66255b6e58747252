package ai

import (
	"time"

	"github.com/annel0/mmo-ai/internal/vec"
)

// EventType — тип события AI-подсистемы
type EventType string

const (
	EventTargetAcquired EventType = "target_acquired"
	EventTargetLost     EventType = "target_lost"
	EventStateChanged   EventType = "state_changed"
	EventAgentBlocked   EventType = "agent_blocked"
)

// Event — типизированное событие AI для внешних наблюдателей.
// Наблюдатель принадлежит точке сборки приложения и подключается
// при создании агента; глобальной шины внутри подсистемы нет.
type Event struct {
	Type      EventType     `json:"type"`
	AgentID   EntityID      `json:"agent_id"`
	TargetID  EntityID      `json:"target_id,omitempty"`
	From      NavState      `json:"from,omitempty"`
	To        NavState      `json:"to,omitempty"`
	Priority  float64       `json:"priority,omitempty"`
	Position  vec.Vec2Float `json:"position"`
	Timestamp time.Time     `json:"timestamp"`
}

// Observer принимает события AI. Вызывается синхронно из тика агента:
// реализация не должна блокироваться.
type Observer interface {
	OnAIEvent(ev Event)
}

// ObserverFunc — адаптер функции к интерфейсу Observer
type ObserverFunc func(ev Event)

// OnAIEvent вызывает функцию-обработчик
func (f ObserverFunc) OnAIEvent(ev Event) { f(ev) }
