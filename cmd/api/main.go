package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/quiz-tournament/internal/config"
	"github.com/yourusername/quiz-tournament/internal/domain/repository"
	"github.com/yourusername/quiz-tournament/internal/handler"
	"github.com/yourusername/quiz-tournament/internal/metrics"
	"github.com/yourusername/quiz-tournament/internal/middleware"
	pgRepo "github.com/yourusername/quiz-tournament/internal/repository/postgres"
	redisRepo "github.com/yourusername/quiz-tournament/internal/repository/redis"
	"github.com/yourusername/quiz-tournament/internal/service"
	"github.com/yourusername/quiz-tournament/internal/service/tournament"
	ws "github.com/yourusername/quiz-tournament/internal/websocket"
	"github.com/yourusername/quiz-tournament/pkg/auth"
	"github.com/yourusername/quiz-tournament/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// Контекст приложения отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appMetrics := metrics.New()

	// Redis необязателен: без него нет кеша банка вопросов, rate limiting и кластера
	var (
		redisClient redis.UniversalClient
		cacheRepo   repository.CacheRepository
	)
	if cfg.Redis.Enabled {
		redisClient, err = database.NewUniversalRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Printf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Println("Successfully connected to Redis")

		repo, err := redisRepo.NewCacheRepo(redisClient)
		if err != nil {
			log.Printf("Failed to initialize CacheRepo: %v", err)
			os.Exit(1)
		}
		cacheRepo = repo
	}

	// PostgreSQL нужен только как источник вопросов
	var questionRepo repository.QuestionRepository
	if cfg.Tournament.QuestionsSource == config.QuestionsSourcePostgres {
		db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
		if err != nil {
			log.Printf("Failed to connect to database: %v", err)
			os.Exit(1)
		}
		sqlDB, err := database.GetSQLDB(db)
		if err != nil {
			log.Printf("Failed to get sql.DB: %v", err)
			os.Exit(1)
		}
		defer sqlDB.Close()

		if err := database.MigrateDB(sqlDB, database.DefaultMigrationsPath); err != nil {
			log.Printf("Failed to migrate database: %v", err)
			os.Exit(1)
		}
		questionRepo = pgRepo.NewQuestionRepo(db)
	}

	// Конфигурация контроллера матчей
	tournamentConfig := tournament.DefaultConfig()
	tournamentConfig.DefaultPlayerCount = cfg.Tournament.DefaultPlayerCount
	tournamentConfig.MaxPlayerCount = cfg.Tournament.MaxPlayerCount
	tournamentConfig.CPUDelay = cfg.Tournament.CPUDelay()

	questionBank := service.NewQuestionBank(service.QuestionBankConfig{
		Source:        cfg.Tournament.QuestionsSource,
		File:          cfg.Tournament.QuestionsFile,
		CacheTTL:      time.Duration(cfg.Tournament.QuestionCacheTTLSec) * time.Second,
		MaxDifficulty: tournamentConfig.Difficulty.MaxDifficulty,
	}, questionRepo, cacheRepo, appMetrics)
	if _, err := questionBank.Reload(ctx); err != nil {
		log.Printf("Failed to load question bank: %v", err)
		os.Exit(1)
	}

	ticketService, err := auth.NewTicketService(cfg.Ticket.Secret, cfg.Ticket.ExpirySec)
	if err != nil {
		log.Printf("Failed to initialize TicketService: %v", err)
		os.Exit(1)
	}

	// --- Инициализация WebSocket ---
	var pubSubProvider ws.PubSubProvider
	if cfg.WebSocket.ClusterEnabled {
		log.Println("Инициализация Redis PubSub для кластеризации WebSocket...")
		redisProvider, err := ws.NewRedisPubSub(redisClient)
		if err != nil {
			log.Printf("Ошибка при создании Redis PubSub провайдера: %v. Кластеризация WS будет неактивна.", err)
		} else {
			pubSubProvider = redisProvider
			defer redisProvider.Close()
		}
	}

	wsHub := ws.NewHub(ws.HubConfig{
		InstanceID:     cfg.WebSocket.InstanceID,
		ClusterChannel: cfg.WebSocket.ClusterChannel,
	}, pubSubProvider, appMetrics)
	wsManager := ws.NewManager(wsHub, appMetrics)

	tournamentService := service.NewTournamentService(service.TournamentServiceConfig{
		Tournament: tournamentConfig,
		Seed:       cfg.Tournament.Seed,
		SessionTTL: cfg.Tournament.SessionTTL(),
		MaxActive:  cfg.Tournament.MaxActive,
	},
		questionBank,
		func(id uuid.UUID) tournament.Presenter { return ws.NewRoomPresenter(wsManager, id) },
		appMetrics,
		appMetrics,
		ticketService,
	)

	tournamentHandler := handler.NewTournamentHandler(tournamentService, wsHub)
	questionHandler := handler.NewQuestionHandler(questionBank)
	wsHandler := handler.NewWSHandler(wsManager, tournamentService, cfg.Server.AllowedOrigins, ws.ClientConfig{
		BufferSize:     cfg.WebSocket.ClientSendBuffer,
		PingInterval:   time.Duration(cfg.WebSocket.PingIntervalSec) * time.Second,
		PongWait:       time.Duration(cfg.WebSocket.PongWaitSec) * time.Second,
		MaxMessageSize: int64(cfg.WebSocket.MaxMessageSize),
	})

	router := gin.Default()

	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.TicketHeader, "X-Admin-Token"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Без Redis middleware ограничения частоты пропускает всё
	noLimit := func(c *gin.Context) { c.Next() }
	commandLimit, createLimit := gin.HandlerFunc(noLimit), gin.HandlerFunc(noLimit)
	if redisClient != nil {
		rateLimiter := middleware.NewRateLimiter(redisClient)
		commandLimit = rateLimiter.Limit(middleware.TournamentRateLimitConfig(
			cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowSec)*time.Second))
		createLimit = rateLimiter.Limit(middleware.CreateRateLimitConfig())
	}

	requireTicket := middleware.RequireTicket(ticketService)
	extractID := middleware.ExtractUUIDParam("id", middleware.TournamentIDKey)

	api := router.Group("/api")
	{
		tournaments := api.Group("/tournaments")
		{
			tournaments.POST("", createLimit, tournamentHandler.CreateTournament)

			tournamentWithID := tournaments.Group("/:id")
			tournamentWithID.Use(extractID)
			{
				tournamentWithID.GET("", tournamentHandler.GetTournament)
				tournamentWithID.GET("/history", tournamentHandler.GetHistory)
				tournamentWithID.GET("/history/export", tournamentHandler.ExportHistory)

				commands := tournamentWithID.Group("")
				commands.Use(requireTicket, commandLimit)
				{
					commands.POST("/next", tournamentHandler.NextMatch)
					commands.POST("/answer", tournamentHandler.SubmitAnswer)
					commands.DELETE("", tournamentHandler.DeleteTournament)
				}
			}
		}

		questions := api.Group("/questions")
		{
			questions.GET("/stats", questionHandler.GetStats)
			questions.POST("/reload", middleware.RequireAdminToken(cfg.Server.AdminToken), questionHandler.Reload)
		}
	}

	router.GET("/ws/tournaments/:id", extractID, requireTicket, wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(appMetrics.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"tournaments": tournamentService.Count(),
			"ws_clients":  wsHub.ClientCount(),
			"instance":    wsHub.InstanceID(),
		})
	})

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return wsHub.Run(groupCtx)
	})

	group.Go(func() error {
		return tournamentService.RunCleanup(groupCtx, time.Duration(cfg.Tournament.CleanupIntervalSec)*time.Second)
	})

	group.Go(func() error {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Println("Shutting down server...")

		// Создаем контекст с таймаутом для graceful shutdown сервера
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
