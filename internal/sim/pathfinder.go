package sim

import (
	"container/heap"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/annel0/mmo-ai/internal/ai"
	"github.com/annel0/mmo-ai/internal/logging"
	"github.com/annel0/mmo-ai/internal/physics"
	"github.com/annel0/mmo-ai/internal/vec"
)

// maxExpandedNodes ограничивает объем работы A* на один запрос:
// недостижимая цель не должна сжигать тик целиком.
const maxExpandedNodes = 8192

// GridPathfinder — поисковик пути A* по равномерной сетке поверх поля
// препятствий. Реализует ai.PathService: запросы складываются в очередь
// и обрабатываются порциями из цикла симуляции, колбэки приходят
// на последующих тиках.
type GridPathfinder struct {
	obstacles  *physics.ObstacleField
	cellSize   float64
	worldSize  float64
	maxPerPump int

	mu    sync.Mutex
	queue []pathRequest
	seq   uint64
}

type pathRequest struct {
	from, to vec.Vec2Float
	priority ai.PathPriority
	cb       ai.PathCallback
	seq      uint64
}

// NewGridPathfinder создает поисковик пути для мира worldSize
// с ячейкой cellSize. maxPerPump — запросов за один вызов Pump.
func NewGridPathfinder(obstacles *physics.ObstacleField, worldSize, cellSize float64, maxPerPump int) *GridPathfinder {
	if cellSize <= 0 {
		cellSize = 32
	}
	if maxPerPump <= 0 {
		maxPerPump = 16
	}
	return &GridPathfinder{
		obstacles:  obstacles,
		cellSize:   cellSize,
		worldSize:  worldSize,
		maxPerPump: maxPerPump,
	}
}

// RequestPath ставит запрос в очередь (ai.PathService).
// Никогда не блокируется и не вызывает колбэк синхронно.
func (pf *GridPathfinder) RequestPath(from, to vec.Vec2Float, priority ai.PathPriority, cb ai.PathCallback) {
	pf.mu.Lock()
	pf.seq++
	pf.queue = append(pf.queue, pathRequest{from: from, to: to, priority: priority, cb: cb, seq: pf.seq})
	// Высокий приоритет обгоняет низкий, внутри приоритета — FIFO
	sort.SliceStable(pf.queue, func(i, j int) bool {
		return pf.queue[i].priority > pf.queue[j].priority
	})
	pf.mu.Unlock()
}

// QueueLen возвращает число запросов в очереди
func (pf *GridPathfinder) QueueLen() int {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return len(pf.queue)
}

// Pump обрабатывает до maxPerPump запросов из очереди.
// Вызывается из цикла симуляции один раз за тик.
func (pf *GridPathfinder) Pump(now time.Time) {
	pf.mu.Lock()
	n := len(pf.queue)
	if n > pf.maxPerPump {
		n = pf.maxPerPump
	}
	batch := make([]pathRequest, n)
	copy(batch, pf.queue[:n])
	pf.queue = pf.queue[n:]
	pf.mu.Unlock()

	for _, req := range batch {
		waypoints, ok := pf.findPath(req.from, req.to)
		if !ok {
			logging.Debug("Pathfinder: путь %v → %v не найден", req.from, req.to)
			req.cb(ai.PathInfo{}, false)
			continue
		}
		req.cb(ai.PathInfo{Waypoints: waypoints, Timestamp: now}, true)
	}
}

// === A* по сетке ===

func (pf *GridPathfinder) toCell(p vec.Vec2Float) vec.Vec2 {
	return vec.Vec2{
		X: int(math.Floor(p.X / pf.cellSize)),
		Y: int(math.Floor(p.Y / pf.cellSize)),
	}
}

func (pf *GridPathfinder) cellCenter(c vec.Vec2) vec.Vec2Float {
	return vec.Vec2Float{
		X: (float64(c.X) + 0.5) * pf.cellSize,
		Y: (float64(c.Y) + 0.5) * pf.cellSize,
	}
}

// passable — ячейка внутри мира и её центр не внутри препятствия
func (pf *GridPathfinder) passable(c vec.Vec2) bool {
	center := pf.cellCenter(c)
	if center.X < 0 || center.Y < 0 || center.X >= pf.worldSize || center.Y >= pf.worldSize {
		return false
	}
	if pf.obstacles != nil && pf.obstacles.Blocked(center) {
		return false
	}
	return true
}

// findPath строит путь A* и возвращает путевые точки (центры ячеек,
// последняя точка — сама цель). Стартовая ячейка в путь не входит.
func (pf *GridPathfinder) findPath(from, to vec.Vec2Float) ([]vec.Vec2Float, bool) {
	start := pf.toCell(from)
	goal := pf.toCell(to)

	if !pf.passable(goal) {
		return nil, false
	}
	if start == goal {
		return []vec.Vec2Float{to}, true
	}

	open := &nodeHeap{}
	heap.Init(open)
	heap.Push(open, &pathNode{cell: start, g: 0, f: float64(start.ManhattanTo(goal))})

	cameFrom := make(map[vec.Vec2]vec.Vec2)
	gScore := map[vec.Vec2]float64{start: 0}
	closed := make(map[vec.Vec2]bool)

	neighbors := []vec.Vec2{{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1}}

	expanded := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		if current.cell == goal {
			return pf.reconstruct(cameFrom, goal, to), true
		}
		if closed[current.cell] {
			continue
		}
		closed[current.cell] = true

		expanded++
		if expanded > maxExpandedNodes {
			return nil, false
		}

		for _, d := range neighbors {
			next := current.cell.Add(d)
			if closed[next] || !pf.passable(next) {
				continue
			}

			tentative := gScore[current.cell] + 1
			if prev, seen := gScore[next]; seen && tentative >= prev {
				continue
			}

			gScore[next] = tentative
			cameFrom[next] = current.cell
			heap.Push(open, &pathNode{
				cell: next,
				g:    tentative,
				f:    tentative + float64(next.ManhattanTo(goal)),
			})
		}
	}

	return nil, false
}

// reconstruct собирает путь от цели к старту и разворачивает его.
// Коллинеарные промежуточные точки выбрасываются.
func (pf *GridPathfinder) reconstruct(cameFrom map[vec.Vec2]vec.Vec2, goal vec.Vec2, to vec.Vec2Float) []vec.Vec2Float {
	var cells []vec.Vec2
	for c, ok := goal, true; ok; c, ok = cameFrom[c], hasKey(cameFrom, c) {
		cells = append(cells, c)
	}

	// Разворот: cells сейчас от цели к старту
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	// Первая ячейка — стартовая, агент уже в ней
	cells = cells[1:]

	waypoints := make([]vec.Vec2Float, 0, len(cells)+1)
	for i, c := range cells {
		if i > 0 && i < len(cells)-1 {
			prev, next := cells[i-1], cells[i+1]
			if (c.X-prev.X == next.X-c.X) && (c.Y-prev.Y == next.Y-c.Y) {
				continue // коллинеарная точка
			}
		}
		waypoints = append(waypoints, pf.cellCenter(c))
	}

	// Последняя путевая точка — сама цель, а не центр её ячейки
	if len(waypoints) > 0 {
		waypoints[len(waypoints)-1] = to
	} else {
		waypoints = append(waypoints, to)
	}
	return waypoints
}

func hasKey(m map[vec.Vec2]vec.Vec2, k vec.Vec2) bool {
	_, ok := m[k]
	return ok
}

// pathNode — узел открытого списка A*
type pathNode struct {
	cell vec.Vec2
	g, f float64
}

type nodeHeap []*pathNode

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*pathNode)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
