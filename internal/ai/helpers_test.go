package ai

import (
	"sync"
	"time"

	"github.com/annel0/mmo-ai/internal/vec"
)

// stubProvider — управляемая тестом система сущностей
type stubProvider struct {
	mu       sync.RWMutex
	entities map[EntityID]EntitySnapshot
}

func newStubProvider() *stubProvider {
	return &stubProvider{entities: make(map[EntityID]EntitySnapshot)}
}

func (p *stubProvider) put(snap EntitySnapshot) {
	p.mu.Lock()
	p.entities[snap.ID] = snap
	p.mu.Unlock()
}

func (p *stubProvider) remove(id EntityID) {
	p.mu.Lock()
	delete(p.entities, id)
	p.mu.Unlock()
}

func (p *stubProvider) setAlive(id EntityID, alive bool) {
	p.mu.Lock()
	if snap, ok := p.entities[id]; ok {
		snap.Alive = alive
		p.entities[id] = snap
	}
	p.mu.Unlock()
}

func (p *stubProvider) move(id EntityID, pos vec.Vec2Float) {
	p.mu.Lock()
	if snap, ok := p.entities[id]; ok {
		snap.Position = pos
		p.entities[id] = snap
	}
	p.mu.Unlock()
}

func (p *stubProvider) setVelocity(id EntityID, v vec.Vec2Float) {
	p.mu.Lock()
	if snap, ok := p.entities[id]; ok {
		snap.Velocity = v
		p.entities[id] = snap
	}
	p.mu.Unlock()
}

func (p *stubProvider) GetEntity(id EntityID) (EntitySnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap, ok := p.entities[id]
	return snap, ok
}

// wallProbe — зонд с вертикальной стеной x = wallX; активируется тестом
type wallProbe struct {
	wallX  float64
	active bool
}

func (p *wallProbe) Raycast(from, to vec.Vec2Float) (RaycastHit, bool) {
	if !p.active {
		return RaycastHit{}, false
	}
	if (from.X < p.wallX) != (to.X < p.wallX) {
		return RaycastHit{
			Obstacle: true,
			Distance: p.wallX - from.X,
			Point:    vec.Vec2Float{X: p.wallX, Y: from.Y},
		}, true
	}
	return RaycastHit{}, false
}

// stubPaths — поисковик пути, отдающий результаты по команде теста
type stubPaths struct {
	mu       sync.Mutex
	requests []stubPathRequest
}

type stubPathRequest struct {
	from, to vec.Vec2Float
	priority PathPriority
	cb       PathCallback
}

func (s *stubPaths) RequestPath(from, to vec.Vec2Float, priority PathPriority, cb PathCallback) {
	s.mu.Lock()
	s.requests = append(s.requests, stubPathRequest{from: from, to: to, priority: priority, cb: cb})
	s.mu.Unlock()
}

func (s *stubPaths) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// deliver отвечает на самый ранний запрос и убирает его из очереди
func (s *stubPaths) deliver(path PathInfo, ok bool) bool {
	s.mu.Lock()
	if len(s.requests) == 0 {
		s.mu.Unlock()
		return false
	}
	req := s.requests[0]
	s.requests = s.requests[1:]
	s.mu.Unlock()

	req.cb(path, ok)
	return true
}

// stubSink запоминает последнее намерение движения
type stubSink struct {
	mu      sync.Mutex
	desired vec.Vec2Float
	stopped bool
}

func (s *stubSink) SetDesiredVelocity(v vec.Vec2Float) {
	s.mu.Lock()
	s.desired = v
	s.stopped = false
	s.mu.Unlock()
}

func (s *stubSink) Stop() {
	s.mu.Lock()
	s.desired = vec.Vec2Float{}
	s.stopped = true
	s.mu.Unlock()
}

func (s *stubSink) last() (vec.Vec2Float, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desired, s.stopped
}

// eventRecorder накапливает события AI
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) OnAIEvent(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) byType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// testClock — ручные часы для детерминированных тестов
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
