package ai

import (
	"fmt"
	"sync"
	"time"

	"github.com/annel0/mmo-ai/internal/logging"
	"github.com/annel0/mmo-ai/internal/vec"
)

// NavState — состояние навигационного автомата агента
type NavState int

const (
	StateIdle NavState = iota
	StateSeekingTarget
	StatePathfinding
	StateFollowingPath
	StateApproachingTarget
	StateBlocked
	StateLostTarget
)

// MarshalText сериализует состояние как строку (JSON, ключи карт)
func (s NavState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText восстанавливает состояние из строкового представления
func (s *NavState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "seeking_target":
		*s = StateSeekingTarget
	case "pathfinding":
		*s = StatePathfinding
	case "following_path":
		*s = StateFollowingPath
	case "approaching_target":
		*s = StateApproachingTarget
	case "blocked":
		*s = StateBlocked
	case "lost_target":
		*s = StateLostTarget
	default:
		return fmt.Errorf("неизвестное состояние навигации: %q", text)
	}
	return nil
}

// String возвращает строковое представление состояния
func (s NavState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeekingTarget:
		return "seeking_target"
	case StatePathfinding:
		return "pathfinding"
	case StateFollowingPath:
		return "following_path"
	case StateApproachingTarget:
		return "approaching_target"
	case StateBlocked:
		return "blocked"
	case StateLostTarget:
		return "lost_target"
	default:
		return "unknown"
	}
}

// AgentRole определяет роль агента (влияет на скорость передвижения)
type AgentRole string

const (
	RoleMelee  AgentRole = "melee"
	RoleRanged AgentRole = "ranged"
	RoleScout  AgentRole = "scout"
)

// moveSpeed возвращает скорость передвижения для роли (единиц в секунду)
func (r AgentRole) moveSpeed() float64 {
	switch r {
	case RoleMelee:
		return 80.0
	case RoleRanged:
		return 60.0
	case RoleScout:
		return 110.0
	default:
		return 70.0
	}
}

// Decision — результат решения агента за тик.
// Чистый результат запроса: вызывающий сам применяет его к физике.
type Decision struct {
	DesiredVelocity vec.Vec2Float
	WantsToAttack   bool
	FacingDirection vec.Vec2Float
}

// navState — внутреннее состояние конечного автомата.
// Переход выполняется парой Exit/Enter, как и для сущностей мира.
type navState interface {
	Kind() NavState
	Enter(a *Agent)
	Update(a *Agent, dt float64) navState
	Exit(a *Agent)
}

// AgentDeps — внешние коллабораторы навигационного агента
type AgentDeps struct {
	Selector *TargetSelector
	Provider EntityProvider
	Paths    PathService // может быть nil: прямолинейное сближение
	Sink     VelocitySink
	Events   Observer // может быть nil
}

// Agent — навигационный автомат одного агента: превращает выбранную цель
// в намерение движения/атаки, координируясь с внешним поисковиком пути
// и приемником скорости.
type Agent struct {
	id       EntityID
	role     AgentRole
	faction  Faction
	cfg      Config
	speed    float64
	selector *TargetSelector
	provider EntityProvider
	paths    PathService
	sink     VelocitySink
	events   Observer

	clock func() time.Time

	// Рабочие поля: трогаются только из потока тика
	state      navState
	self       EntitySnapshot
	now        time.Time
	target     *TargetInfo
	path       *PathInfo
	waypoint   int
	desired    vec.Vec2Float
	wantsAtk   bool
	facing     vec.Vec2Float
	stuckTimer float64

	// Поля запроса пути: колбэк может прийти на другом тике
	pathMu      sync.Mutex
	pathSeq     uint64
	pathPending bool
	pathReady   bool
	pathOK      bool
	pendingPath PathInfo
	lastRequest time.Time

	// Опубликованный снимок: читается конкурентно отладочным API
	pubMu     sync.RWMutex
	pubState  NavState
	pubTarget *TargetInfo
	pubDec    Decision
}

// NewAgent создает навигационный автомат агента.
// Конфигурация проверяется при создании.
func NewAgent(id EntityID, role AgentRole, faction Faction, cfg Config, deps AgentDeps) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Selector == nil {
		return nil, fmt.Errorf("agent %d: selector обязателен", id)
	}
	if deps.Provider == nil {
		return nil, fmt.Errorf("agent %d: entity provider обязателен", id)
	}

	a := &Agent{
		id:       id,
		role:     role,
		faction:  faction,
		cfg:      cfg,
		speed:    role.moveSpeed(),
		selector: deps.Selector,
		provider: deps.Provider,
		paths:    deps.Paths,
		sink:     deps.Sink,
		events:   deps.Events,
		clock:    time.Now,
		facing:   vec.Vec2Float{X: 1, Y: 0},
	}
	a.state = &idleState{}
	a.state.Enter(a)
	a.publish()
	return a, nil
}

// ID возвращает идентификатор агента
func (a *Agent) ID() EntityID { return a.id }

// Role возвращает роль агента
func (a *Agent) Role() AgentRole { return a.role }

// Faction возвращает фракцию агента
func (a *Agent) Faction() Faction { return a.faction }

// Update выполняет один тик автомата. Вызывается синхронно, один раз
// за кадр на агента; никогда не блокируется.
func (a *Agent) Update(dt float64) {
	a.now = a.clock()

	self, ok := a.provider.GetEntity(a.id)
	if !ok || !self.Alive {
		// Смерть агента обрабатывается снаружи; мы лишь перестаем двигаться
		a.desired = vec.Vec2Float{}
		a.wantsAtk = false
		a.emit()
		a.publish()
		return
	}
	a.self = self

	// Глобальный инвариант: невалидная цель выбивает в LostTarget
	// из любого состояния до выполнения логики самого состояния
	if a.target != nil && a.state.Kind() != StateLostTarget {
		if reason, valid := a.targetStatus(); !valid {
			logging.LogTargetLost(uint64(a.id), uint64(a.target.ID), reason)
			a.transition(&lostTargetState{})
		}
	}

	next := a.state.Update(a, dt)
	if next != nil && next != a.state {
		a.transition(next)
	}

	a.emit()
	a.publish()
}

// ComputeDecision возвращает текущее намерение агента.
// Чистый запрос без побочных эффектов: вызывающий применяет результат сам.
func (a *Agent) ComputeDecision() Decision {
	a.pubMu.RLock()
	defer a.pubMu.RUnlock()
	return a.pubDec
}

// CurrentState возвращает текущее состояние автомата
func (a *Agent) CurrentState() NavState {
	a.pubMu.RLock()
	defer a.pubMu.RUnlock()
	return a.pubState
}

// CurrentTarget возвращает текущую цель агента, если она есть
func (a *Agent) CurrentTarget() (TargetInfo, bool) {
	a.pubMu.RLock()
	defer a.pubMu.RUnlock()
	if a.pubTarget == nil {
		return TargetInfo{}, false
	}
	return *a.pubTarget, true
}

// === Внутренняя механика ===

// transition выполняет смену состояния парой Exit/Enter
func (a *Agent) transition(next navState) {
	from := a.state.Kind()
	a.state.Exit(a)
	a.state = next
	a.state.Enter(a)

	logging.LogStateTransition(uint64(a.id), from.String(), next.Kind().String())
	a.notify(Event{
		Type:      EventStateChanged,
		AgentID:   a.id,
		From:      from,
		To:        next.Kind(),
		Timestamp: a.now,
	})
}

// targetStatus проверяет валидность текущей цели.
// Невалидна: уничтожена, мертва или дальше giveUpDistance.
func (a *Agent) targetStatus() (reason string, valid bool) {
	snap, ok := a.provider.GetEntity(a.target.ID)
	if !ok {
		return "сущность уничтожена", false
	}
	if !snap.Alive {
		return "цель мертва", false
	}
	if a.self.Position.DistanceTo(snap.Position) > a.cfg.GiveUpDistance {
		return "цель вне дистанции преследования", false
	}
	return "", true
}

// targetPosition возвращает актуальную позицию цели из снимка сущности
func (a *Agent) targetPosition() (vec.Vec2Float, bool) {
	if a.target == nil {
		return vec.Vec2Float{}, false
	}
	snap, ok := a.provider.GetEntity(a.target.ID)
	if !ok {
		return vec.Vec2Float{}, false
	}
	return snap.Position, true
}

// moveToward устанавливает желаемую скорость в направлении точки
func (a *Agent) moveToward(point vec.Vec2Float) {
	dir := point.Sub(a.self.Position).Normalized()
	a.desired = dir.Mul(a.speed)
	if !dir.IsZero() {
		a.facing = dir
	}
}

// stop обнуляет желаемую скорость
func (a *Agent) stop() {
	a.desired = vec.Vec2Float{}
}

// checkStuck — эвристика застревания: агент хочет двигаться (ненулевая
// желаемая скорость), но наблюдаемая скорость из физики близка к нулю
// дольше порога. Отличает «не может пройти» от «решил остановиться».
func (a *Agent) checkStuck(dt float64) bool {
	if a.desired.IsZero() {
		a.stuckTimer = 0
		return false
	}

	observed := a.self.Velocity.Length()
	if observed < a.speed*0.05 {
		a.stuckTimer += dt
	} else {
		a.stuckTimer = 0
	}

	return a.stuckTimer >= a.cfg.BlockedCheckInterval.Seconds()
}

// requestPath отправляет асинхронный запрос пути к цели.
// Колбэк прибудет на одном из следующих тиков; устаревшие результаты
// отбрасываются по порядковому номеру запроса.
func (a *Agent) requestPath(to vec.Vec2Float) {
	a.pathMu.Lock()
	a.pathSeq++
	seq := a.pathSeq
	a.pathPending = true
	a.pathReady = false
	a.lastRequest = a.now
	a.pathMu.Unlock()

	a.selector.Counters().PathRequests.Add(1)

	from := a.self.Position
	a.paths.RequestPath(from, to, PathPriorityNormal, func(path PathInfo, ok bool) {
		a.onPathResult(seq, path, ok)
	})
}

// onPathResult принимает результат поисковика пути.
// Результат устаревшего запроса — no-op (агент мог сменить состояние).
func (a *Agent) onPathResult(seq uint64, path PathInfo, ok bool) {
	a.pathMu.Lock()
	defer a.pathMu.Unlock()

	if seq != a.pathSeq || !a.pathPending {
		return
	}
	a.pathPending = false
	a.pathReady = true
	a.pathOK = ok
	if ok {
		a.pendingPath = path
	}
}

// takePathResult забирает готовый результат запроса пути, если он есть
func (a *Agent) takePathResult() (PathInfo, bool, bool) {
	a.pathMu.Lock()
	defer a.pathMu.Unlock()

	if !a.pathReady {
		return PathInfo{}, false, false
	}
	a.pathReady = false
	return a.pendingPath, a.pathOK, true
}

// cancelPathRequest делает ожидающий запрос пути устаревшим
func (a *Agent) cancelPathRequest() {
	a.pathMu.Lock()
	a.pathPending = false
	a.pathReady = false
	a.pathMu.Unlock()
}

// clearTarget сбрасывает цель и путь
func (a *Agent) clearTarget() {
	a.target = nil
	a.path = nil
	a.waypoint = 0
	a.cancelPathRequest()
}

// emit передает намерение в приемник скорости, если он подключен
func (a *Agent) emit() {
	if a.sink == nil {
		return
	}
	if a.desired.IsZero() {
		a.sink.Stop()
	} else {
		a.sink.SetDesiredVelocity(a.desired)
	}
}

// publish фиксирует снимок для конкурентных читателей (отладочное API)
func (a *Agent) publish() {
	a.pubMu.Lock()
	a.pubState = a.state.Kind()
	if a.target != nil {
		t := *a.target
		a.pubTarget = &t
	} else {
		a.pubTarget = nil
	}
	a.pubDec = Decision{
		DesiredVelocity: a.desired,
		WantsToAttack:   a.wantsAtk,
		FacingDirection: a.facing,
	}
	a.pubMu.Unlock()
}

// notify отправляет событие наблюдателю, если он подключен
func (a *Agent) notify(ev Event) {
	if a.events != nil {
		a.events.OnAIEvent(ev)
	}
}
