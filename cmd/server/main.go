package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/mmo-ai/internal/ai"
	"github.com/annel0/mmo-ai/internal/api"
	"github.com/annel0/mmo-ai/internal/config"
	"github.com/annel0/mmo-ai/internal/eventbus"
	"github.com/annel0/mmo-ai/internal/logging"
	"github.com/annel0/mmo-ai/internal/observability"
	"github.com/annel0/mmo-ai/internal/sim"
	"github.com/annel0/mmo-ai/internal/trace"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или ENV AI_CONFIG)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	logging.Info("🤖 Запуск AI сервера (выбор целей и навигация)...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка чтения конфигурации: %v", err)
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
		logging.Info("Конфигурация не задана, используются значения по умолчанию")
	}

	aiCfg, err := cfg.AI.ToAI()
	if err != nil {
		logging.Error("❌ Неверная конфигурация AI: %v", err)
		log.Fatalf("❌ Неверная конфигурация AI: %v", err)
	}

	restAddr := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	metricsAddr := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	logging.Info("📡 Конфигурация: REST=%s, метрики=%s", restAddr, metricsAddr)

	// === TELEMETRY ===
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := observability.InitTelemetry(ctx, "mmo-ai")
	if err != nil {
		logging.Warn("OpenTelemetry недоступен: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === ШИНА СОБЫТИЙ ===
	var bus eventbus.EventBus
	if cfg.EventBus.UseJetStream {
		retention := time.Duration(cfg.EventBus.Retention) * time.Hour
		if retention <= 0 {
			retention = 24 * time.Hour
		}
		jsBus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, retention)
		if err != nil {
			logging.Error("❌ Подключение к NATS: %v", err)
			log.Fatalf("❌ Подключение к NATS: %v", err)
		}
		defer jsBus.Close()
		bus = jsBus
		logging.Info("✉️ Шина событий: JetStream (%s)", cfg.EventBus.URL)
	} else {
		buffer := cfg.EventBus.Buffer
		if buffer <= 0 {
			buffer = 1024
		}
		bus = eventbus.NewMemoryBus(buffer)
		logging.Info("✉️ Шина событий: in-memory (буфер %d)", buffer)
	}
	eventbus.Init(bus)

	if err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("LoggingListener не запущен: %v", err)
	}

	busMetrics := eventbus.NewMetricsExporter(bus)
	busMetrics.StartHTTP(metricsAddr)
	defer busMetrics.Stop()

	// === ТРАССА РЕШЕНИЙ ===
	var recorder *trace.Recorder
	if cfg.Trace.Enabled {
		dir := cfg.Trace.Dir
		if dir == "" {
			dir = "data"
		}
		recorder, err = trace.NewRecorder(dir)
		if err != nil {
			logging.Error("❌ Открытие хранилища трассы: %v", err)
			log.Fatalf("❌ Открытие хранилища трассы: %v", err)
		}
		defer recorder.Close()
		logging.Info("📼 Трасса решений включена (%s)", dir)
	}

	// === НАБЛЮДАТЕЛЬ СОБЫТИЙ AI ===
	publisher := eventbus.NewAIPublisher(bus, "ai")
	observer := ai.ObserverFunc(func(ev ai.Event) {
		publisher.OnAIEvent(ev)
		if recorder != nil {
			if err := recorder.AppendEvent(ev); err != nil {
				logging.Warn("Трасса: запись события: %v", err)
			}
		}
	})

	// === СИМУЛЯЦИЯ ===
	simulation, err := sim.NewSimulation(cfg.Sim, aiCfg, observer, recorder)
	if err != nil {
		logging.Error("❌ Создание симуляции: %v", err)
		log.Fatalf("❌ Создание симуляции: %v", err)
	}

	aiMetrics := ai.NewMetricsExporter(simulation.Selector())
	aiMetrics.Start()
	defer aiMetrics.Stop()

	// === REST API ===
	restServer := api.NewRestServer(api.Config{
		Port:     restAddr,
		Selector: simulation.Selector(),
		Agents:   simulation.World(),
		Bus:      bus,
	})
	restServer.Start()

	go simulation.Run(ctx)

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s", restAddr)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", metricsAddr)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restAddr)
	logging.Info("💡 Примеры:")
	logging.Info("   curl http://localhost%s/api/agents", restAddr)
	logging.Info("   curl http://localhost%s/api/stats", restAddr)

	// Ждем сигнала для завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Warn("Остановка REST API: %v", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Warn("Остановка телеметрии: %v", err)
	}

	logging.Info("👋 Сервер остановлен")
}
