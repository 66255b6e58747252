package ai

import (
	"github.com/annel0/mmo-ai/internal/logging"
)

// === Idle ===

// idleState — бездействие: ждем истечения интервала поиска
type idleState struct {
	elapsed float64
}

func (s *idleState) Kind() NavState { return StateIdle }

func (s *idleState) Enter(a *Agent) {
	s.elapsed = 0
	a.stop()
	a.wantsAtk = false
}

func (s *idleState) Update(a *Agent, dt float64) navState {
	s.elapsed += dt
	if s.elapsed >= a.cfg.SearchInterval.Seconds() && a.faction != FactionNone {
		return &seekingState{}
	}
	return s
}

func (s *idleState) Exit(a *Agent) {}

// === SeekingTarget ===

// seekingState — запрос лучшей цели у селектора
type seekingState struct{}

func (s *seekingState) Kind() NavState { return StateSeekingTarget }

func (s *seekingState) Enter(a *Agent) {}

func (s *seekingState) Update(a *Agent, dt float64) navState {
	target := a.selector.FindBestTarget(a.self.Position, a.faction, a.cfg.DetectionRange, a.id)
	if target == nil {
		return &idleState{}
	}

	a.target = target
	logging.LogTargetAcquired(uint64(a.id), uint64(target.ID), target.Distance, target.Priority)
	a.notify(Event{
		Type:      EventTargetAcquired,
		AgentID:   a.id,
		TargetID:  target.ID,
		Priority:  target.Priority,
		Position:  target.Position,
		Timestamp: a.now,
	})

	if target.Distance <= a.cfg.AttackRange {
		return &approachingState{}
	}
	return &pathfindingState{}
}

func (s *seekingState) Exit(a *Agent) {}

// === Pathfinding ===

// pathfindingState — асинхронный запрос пути у внешнего поисковика.
// Пока ответа нет, агент сближается по прямой; отсутствие поисковика
// или неудача — штатный откат на прямолинейное сближение, не ошибка.
type pathfindingState struct {
	requested bool
	waited    float64
}

func (s *pathfindingState) Kind() NavState { return StatePathfinding }

func (s *pathfindingState) Enter(a *Agent) {}

func (s *pathfindingState) Update(a *Agent, dt float64) navState {
	if a.target == nil {
		return &seekingState{}
	}
	if a.paths == nil {
		return &approachingState{}
	}

	targetPos, ok := a.targetPosition()
	if !ok {
		return s // глобальный инвариант выбьет в LostTarget на следующем тике
	}

	if !s.requested {
		// Не дергаем поисковик чаще pathUpdateInterval
		if a.lastRequest.IsZero() || a.now.Sub(a.lastRequest) >= a.cfg.PathUpdateInterval {
			a.requestPath(targetPos)
			s.requested = true
		}
	} else {
		if path, pathOK, delivered := a.takePathResult(); delivered {
			if pathOK && len(path.Waypoints) > 0 {
				a.path = &path
				return &followingPathState{}
			}
			a.selector.Counters().PathFailures.Add(1)
			return &approachingState{}
		}

		s.waited += dt
		if s.waited >= 2*a.cfg.PathUpdateInterval.Seconds() {
			// Поисковик молчит — откатываемся на прямую
			a.cancelPathRequest()
			a.selector.Counters().PathFailures.Add(1)
			return &approachingState{}
		}
	}

	a.moveToward(targetPos)
	a.wantsAtk = false

	if a.checkStuck(dt) {
		return &blockedState{}
	}
	return s
}

func (s *pathfindingState) Exit(a *Agent) {}

// === FollowingPath ===

// followingPathState — движение по путевым точкам
type followingPathState struct{}

func (s *followingPathState) Kind() NavState { return StateFollowingPath }

func (s *followingPathState) Enter(a *Agent) {
	a.waypoint = 0
}

func (s *followingPathState) Update(a *Agent, dt float64) navState {
	if a.target == nil || a.path == nil || len(a.path.Waypoints) == 0 {
		return &seekingState{}
	}

	targetPos, ok := a.targetPosition()
	if !ok {
		return s
	}

	// Вошли в радиус атаки раньше конца пути
	if a.self.Position.DistanceTo(targetPos) <= a.cfg.AttackRange {
		return &approachingState{}
	}

	// Устаревший путь отбрасывается и перезапрашивается
	if a.now.Sub(a.path.Timestamp) > a.cfg.MaxPathAge {
		a.path = nil
		return &pathfindingState{}
	}

	// Цель ушла далеко от конца пути — путь больше не ведет к ней
	destination := a.path.Waypoints[len(a.path.Waypoints)-1]
	if targetPos.DistanceTo(destination) > a.cfg.AttackRange {
		a.path = nil
		return &pathfindingState{}
	}

	// Продвижение курсора путевых точек
	waypoint := a.path.Waypoints[a.waypoint]
	if a.self.Position.DistanceTo(waypoint) <= a.cfg.PathNodeThreshold {
		a.waypoint++
		if a.waypoint >= len(a.path.Waypoints) {
			return &approachingState{}
		}
		waypoint = a.path.Waypoints[a.waypoint]
	}

	a.moveToward(waypoint)
	a.wantsAtk = false

	if a.checkStuck(dt) {
		return &blockedState{}
	}
	return s
}

func (s *followingPathState) Exit(a *Agent) {}

// === ApproachingTarget ===

// approachingState — прямолинейное сближение с целью до радиуса атаки.
// Гистерезис ×1.2 предотвращает осцилляцию на точной границе радиуса.
type approachingState struct{}

func (s *approachingState) Kind() NavState { return StateApproachingTarget }

func (s *approachingState) Enter(a *Agent) {}

func (s *approachingState) Update(a *Agent, dt float64) navState {
	if a.target == nil {
		return &seekingState{}
	}

	targetPos, ok := a.targetPosition()
	if !ok {
		return s
	}

	distance := a.self.Position.DistanceTo(targetPos)

	if distance > a.cfg.AttackRange*1.2 {
		return &pathfindingState{}
	}

	if distance <= a.cfg.AttackRange {
		a.stop()
		a.wantsAtk = true
		dir := targetPos.Sub(a.self.Position).Normalized()
		if !dir.IsZero() {
			a.facing = dir
		}
		return s
	}

	a.moveToward(targetPos)
	a.wantsAtk = false

	if a.checkStuck(dt) {
		return &blockedState{}
	}
	return s
}

func (s *approachingState) Exit(a *Agent) {}

// === Blocked ===

// blockedState — застревание: стоим, после таймаута сбрасываем путь
// и пробуем заново
type blockedState struct {
	elapsed float64
}

func (s *blockedState) Kind() NavState { return StateBlocked }

func (s *blockedState) Enter(a *Agent) {
	s.elapsed = 0
	a.stop()
	a.wantsAtk = false
	a.stuckTimer = 0

	a.selector.Counters().BlockedEvents.Add(1)
	a.notify(Event{
		Type:      EventAgentBlocked,
		AgentID:   a.id,
		Position:  a.self.Position,
		Timestamp: a.now,
	})
}

func (s *blockedState) Update(a *Agent, dt float64) navState {
	s.elapsed += dt
	if s.elapsed >= a.cfg.BlockedTimeout.Seconds() {
		a.path = nil
		a.waypoint = 0
		if a.target != nil {
			return &pathfindingState{}
		}
		return &seekingState{}
	}
	return s
}

func (s *blockedState) Exit(a *Agent) {}

// === LostTarget ===

// lostTargetState — цель потеряна: сбрасываем цель и путь,
// после таймаута возвращаемся к поиску
type lostTargetState struct {
	elapsed float64
}

func (s *lostTargetState) Kind() NavState { return StateLostTarget }

func (s *lostTargetState) Enter(a *Agent) {
	s.elapsed = 0

	if a.target != nil {
		a.selector.Counters().TargetsLost.Add(1)
		a.notify(Event{
			Type:      EventTargetLost,
			AgentID:   a.id,
			TargetID:  a.target.ID,
			Timestamp: a.now,
		})
	}

	a.clearTarget()
	a.stop()
	a.wantsAtk = false
}

func (s *lostTargetState) Update(a *Agent, dt float64) navState {
	s.elapsed += dt
	if s.elapsed >= a.cfg.LostTargetTimeout.Seconds() {
		return &seekingState{}
	}
	return s
}

func (s *lostTargetState) Exit(a *Agent) {}
