package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/mmo-ai/internal/ai"
	"github.com/annel0/mmo-ai/internal/eventbus"
	"github.com/annel0/mmo-ai/internal/logging"
	"github.com/annel0/mmo-ai/internal/middleware"
)

// AgentSource предоставляет доступ к агентам и снимкам сущностей.
// Реализуется миром симуляции.
type AgentSource interface {
	ListAgents() []*ai.Agent
	GetAgent(id ai.EntityID) (*ai.Agent, bool)
	GetEntity(id ai.EntityID) (ai.EntitySnapshot, bool)
}

// RestServer — отладочный REST API поверх AI-подсистемы:
// состояния агентов, счетчики селектора, таблица фракций.
type RestServer struct {
	router   *gin.Engine
	selector *ai.TargetSelector
	agents   AgentSource
	bus      eventbus.EventBus
	port     string
	metrics  *ServerMetrics
	srv      *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string             // порт для запуска сервера, например ":8088"
	Selector *ai.TargetSelector // селектор целей (счетчики, фракции)
	Agents   AgentSource        // источник агентов
	Bus      eventbus.EventBus  // шина событий (опционально)
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("ai_api"))

	promMw := middleware.NewPrometheusMiddleware("ai_api")
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:   router,
		selector: config.Selector,
		agents:   config.Agents,
		bus:      config.Bus,
		port:     config.Port,
		metrics:  NewServerMetrics(),
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/agents", rs.handleAgents)
		api.GET("/agents/:id", rs.handleAgent)
		api.GET("/factions", rs.handleFactions)
		api.GET("/server", rs.handleServerInfo)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// AgentSummary — краткое представление агента для списка
type AgentSummary struct {
	ID       uint64  `json:"id"`
	Role     string  `json:"role"`
	Faction  string  `json:"faction"`
	State    string  `json:"state"`
	TargetID uint64  `json:"target_id,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// AgentDetail — полное представление агента
type AgentDetail struct {
	AgentSummary
	Health   float64        `json:"health"`
	Target   *ai.TargetInfo `json:"target,omitempty"`
	Decision ai.Decision    `json:"decision"`
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": rs.metrics.GetUptime(),
		"time":   time.Now().UTC(),
	})
}

// handleStats возвращает счетчики селектора, кеша видимости и шины
func (rs *RestServer) handleStats(c *gin.Context) {
	resp := gin.H{}

	if rs.selector != nil {
		resp["selector"] = rs.selector.Counters().Snapshot(rs.selector.Vision().HitRate())

		hits, misses, size := rs.selector.Vision().Stats()
		resp["vision"] = gin.H{"hits": hits, "misses": misses, "entries": size}

		resp["memory_records"] = rs.selector.Memory().Count()
		resp["index"] = rs.selector.Index().Stats()
	}
	if rs.bus != nil {
		resp["eventbus"] = rs.bus.Metrics()
	}

	c.JSON(http.StatusOK, resp)
}

func (rs *RestServer) handleAgents(c *gin.Context) {
	list := rs.agents.ListAgents()

	summaries := make([]AgentSummary, 0, len(list))
	for _, agent := range list {
		summaries = append(summaries, rs.summarize(agent))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })

	c.JSON(http.StatusOK, gin.H{"count": len(summaries), "agents": summaries})
}

func (rs *RestServer) handleAgent(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный ID агента"})
		return
	}

	agent, ok := rs.agents.GetAgent(ai.EntityID(id))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "агент не найден"})
		return
	}

	detail := AgentDetail{
		AgentSummary: rs.summarize(agent),
		Decision:     agent.ComputeDecision(),
	}
	if snap, ok := rs.agents.GetEntity(agent.ID()); ok {
		detail.Health = snap.HealthRatio
	}
	if target, ok := agent.CurrentTarget(); ok {
		detail.Target = &target
	}

	c.JSON(http.StatusOK, detail)
}

// handleFactions возвращает текущую таблицу отношений фракций
func (rs *RestServer) handleFactions(c *gin.Context) {
	if rs.selector == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "селектор не подключен"})
		return
	}

	snapshot := rs.selector.Factions().Snapshot()
	out := make(map[string][]string, len(snapshot))
	for faction, enemies := range snapshot {
		names := make([]string, 0, len(enemies))
		for _, enemy := range enemies {
			names = append(names, enemy.String())
		}
		out[faction.String()] = names
	}

	c.JSON(http.StatusOK, gin.H{"attacks": out})
}

// handleServerInfo возвращает метрики процесса
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	memMB, _ := rs.metrics.GetMemoryUsage()
	cpuPct, _ := rs.metrics.GetCPUUsage()

	c.JSON(http.StatusOK, gin.H{
		"uptime":    rs.metrics.GetUptime(),
		"memory_mb": memMB,
		"cpu_pct":   cpuPct,
		"memory":    rs.metrics.GetDetailedMemoryStats(),
	})
}

func (rs *RestServer) summarize(agent *ai.Agent) AgentSummary {
	s := AgentSummary{
		ID:      uint64(agent.ID()),
		Role:    string(agent.Role()),
		Faction: agent.Faction().String(),
		State:   agent.CurrentState().String(),
	}
	if target, ok := agent.CurrentTarget(); ok {
		s.TargetID = uint64(target.ID)
	}
	if snap, ok := rs.agents.GetEntity(agent.ID()); ok {
		s.X = snap.Position.X
		s.Y = snap.Position.Y
	}
	return s
}

// Start запускает HTTP-сервер в отдельной горутине
func (rs *RestServer) Start() {
	rs.srv = &http.Server{
		Addr:    rs.port,
		Handler: rs.router,
	}

	go func() {
		logging.Info("🌐 REST API запущен на %s", rs.port)
		if err := rs.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("Ошибка REST сервера: %v", err)
		}
	}()
}

// Stop корректно останавливает HTTP-сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	if rs.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rs.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("остановка REST сервера: %w", err)
	}
	return nil
}
