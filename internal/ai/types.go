package ai

import (
	"time"

	"github.com/annel0/mmo-ai/internal/vec"
)

// EntityID — идентификатор сущности во внешней системе сущностей.
// Подсистема AI никогда не создает и не уничтожает сущности,
// она хранит только слабые ссылки (ID) и перепроверяет их перед использованием.
type EntityID uint64

// Faction представляет фракцию сущности
type Faction uint8

const (
	FactionNone Faction = iota
	FactionPlayer
	FactionRed
	FactionBlue
	FactionGreen
	FactionYellow
)

// String возвращает строковое представление фракции
func (f Faction) String() string {
	switch f {
	case FactionPlayer:
		return "player"
	case FactionRed:
		return "red"
	case FactionBlue:
		return "blue"
	case FactionGreen:
		return "green"
	case FactionYellow:
		return "yellow"
	default:
		return "none"
	}
}

// Classification определяет класс цели для бонуса приоритета
type Classification uint8

const (
	ClassGeneric Classification = iota
	ClassElite
	ClassBoss
	ClassPlayer
)

// String возвращает строковое представление класса
func (c Classification) String() string {
	switch c {
	case ClassElite:
		return "elite"
	case ClassBoss:
		return "boss"
	case ClassPlayer:
		return "player"
	default:
		return "generic"
	}
}

// EntitySnapshot — read-only снимок состояния сущности.
// Обновляется внешней системой сущностей каждый кадр; AI только читает.
type EntitySnapshot struct {
	ID          EntityID
	Faction     Faction
	Position    vec.Vec2Float
	Velocity    vec.Vec2Float // наблюдаемая скорость (из физики, не желаемая)
	Alive       bool
	HealthRatio float64 // 0.0 (мертв) .. 1.0 (полное здоровье)
	AttackStat  float64
	Class       Classification
}

// EntityProvider разрешает EntityID в актуальный снимок.
// ok == false означает, что сущность уничтожена или недоступна —
// держатели ID обязаны проверять это перед каждым использованием.
type EntityProvider interface {
	GetEntity(id EntityID) (EntitySnapshot, bool)
}

// RaycastHit описывает ближайшее попадание луча
type RaycastHit struct {
	Entity   EntityID // 0, если луч уперся в статическую геометрию
	Obstacle bool     // попадание классифицировано как препятствие
	Distance float64
	Point    vec.Vec2Float
}

// LineOfSightProbe — внешний физический рейкаст (движок физики).
// Возвращает ближайшее попадание между двумя точками; ok == false — попаданий нет.
type LineOfSightProbe interface {
	Raycast(from, to vec.Vec2Float) (hit RaycastHit, ok bool)
}

// PathPriority определяет приоритет запроса пути
type PathPriority int

const (
	PathPriorityLow PathPriority = iota
	PathPriorityNormal
	PathPriorityHigh
)

// PathInfo — путь, выданный внешним поисковиком.
// Принадлежит запросившему агенту; отбрасывается при устаревании.
type PathInfo struct {
	Waypoints []vec.Vec2Float
	Timestamp time.Time
}

// PathCallback вызывается поисковиком пути на одном из следующих тиков.
// ok == false означает, что путь построить не удалось.
type PathCallback func(path PathInfo, ok bool)

// PathService — внешний поисковик пути. Может отсутствовать (nil):
// тогда агенты переходят на прямолинейное сближение.
type PathService interface {
	RequestPath(from, to vec.Vec2Float, priority PathPriority, cb PathCallback)
}

// VelocitySink — приемник желаемой скорости (обход препятствий или физика)
type VelocitySink interface {
	SetDesiredVelocity(v vec.Vec2Float)
	Stop()
}

// TargetInfo — результат выбора цели. Создается заново при каждом запросе,
// не мутируется после возврата и не кешируется дольше одного цикла решения.
type TargetInfo struct {
	ID         EntityID
	Position   vec.Vec2Float
	Distance   float64
	Faction    Faction
	Priority   float64
	FromMemory bool // цель получена из фазы памяти, а не прямым обнаружением
}
