package eventbus

import "context"

var globalBus EventBus

// Init устанавливает глобальную шину приложения.
// AI-подсистема о ней не знает: агенты получают наблюдателя при создании.
func Init(bus EventBus) { globalBus = bus }

// Publish отправляет событие в глобальную шину, если она инициализирована.
func Publish(ctx context.Context, ev *Envelope) error {
	if globalBus == nil {
		return nil
	}
	return globalBus.Publish(ctx, ev)
}
