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

	"github.com/yourusername/assessment-api/internal/ai"
	"github.com/yourusername/assessment-api/internal/config"
	"github.com/yourusername/assessment-api/internal/handler"
	"github.com/yourusername/assessment-api/internal/middleware"
	pgRepo "github.com/yourusername/assessment-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/assessment-api/internal/repository/redis"
	"github.com/yourusername/assessment-api/internal/service"
	"github.com/yourusername/assessment-api/internal/service/contentgen"
	"github.com/yourusername/assessment-api/internal/service/evaluation"
	"github.com/yourusername/assessment-api/pkg/database"
)

// allowedOrigins синхронизирован между CORS и WebSocket CheckOrigin
var allowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"http://localhost:8000",
}

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

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}

	// Инициализируем репозитории
	questionRepo := pgRepo.NewQuestionRepo(db)
	assessmentRepo := pgRepo.NewAssessmentRepo(db)
	sectionRepo := pgRepo.NewSectionRepo(db)
	candidateRepo := pgRepo.NewCandidateRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)
	answerRepo := pgRepo.NewAnswerRepo(db)
	proctoringRepo := pgRepo.NewProctoringRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Внешние AI-коллабораторы
	aiClient := ai.NewClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.ChatModel, cfg.AI.TranscribeModel)
	grammarChecker := ai.NewGrammarChecker(cfg.AI.GrammarEndpoint, cfg.AI.GrammarLanguage)

	// Генератор контента
	generator := contentgen.NewGenerator(contentgen.DefaultConfig(), &contentgen.Dependencies{
		AssessmentRepo: assessmentRepo,
		SectionRepo:    sectionRepo,
		QuestionRepo:   questionRepo,
		CacheRepo:      cacheRepo,
	})

	// Пайплайн оценивания
	evalConfig := evaluation.DefaultConfig()
	if cfg.Evaluation.BatchSize > 0 {
		evalConfig.BatchSize = cfg.Evaluation.BatchSize
	}
	if cfg.Evaluation.InterItemDelayMs > 0 {
		evalConfig.InterItemDelay = time.Duration(cfg.Evaluation.InterItemDelayMs) * time.Millisecond
	}
	pipeline := evaluation.NewPipeline(evalConfig, &evaluation.Dependencies{
		AnswerRepo:  answerRepo,
		AttemptRepo: attemptRepo,
		CacheRepo:   cacheRepo,
		Transcriber: aiClient,
		Grammar:     grammarChecker,
		Rubric:      aiClient,
	})

	// Инициализируем сервисы
	questionService := service.NewQuestionService(questionRepo)
	assessmentService := service.NewAssessmentService(assessmentRepo, sectionRepo, questionRepo)
	candidateService := service.NewCandidateService(candidateRepo)
	attemptService := service.NewAttemptService(attemptRepo, assessmentRepo, sectionRepo, questionRepo, candidateRepo)
	answerService := service.NewAnswerService(answerRepo, attemptRepo)
	proctoringService := service.NewProctoringService(proctoringRepo, attemptRepo)
	resultService := service.NewResultService(attemptRepo, answerRepo, assessmentRepo, proctoringRepo)

	// Инициализируем обработчики
	assessmentHandler := handler.NewAssessmentHandler(assessmentService, resultService, generator)
	questionHandler := handler.NewQuestionHandler(questionService)
	attemptHandler := handler.NewAttemptHandler(attemptService, candidateService, answerService)
	answerHandler := handler.NewAnswerHandler(answerService, attemptService, candidateService)
	evaluationHandler := handler.NewEvaluationHandler(pipeline)
	proctoringHandler := handler.NewProctoringHandler(proctoringService, attemptService, candidateService)
	wsHandler := handler.NewWSHandler(proctoringService, attemptService, candidateService, cfg.Auth.JWTSecret, allowedOrigins)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		// Production: не доверять прокси-заголовкам
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		// Development: доверяем localhost
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	api.Use(rateLimiter.Limit(middleware.DefaultAPIRateLimitConfig()))
	{
		// Ассессменты (чтение — для всех аутентифицированных)
		assessments := api.Group("/assessments")
		assessments.Use(authMiddleware.RequireAuth())
		{
			assessments.GET("", assessmentHandler.ListAssessments)

			assessmentWithID := assessments.Group("/:id")
			assessmentWithID.Use(middleware.ExtractUintParam("id", "assessmentID"))
			{
				assessmentWithID.GET("", assessmentHandler.GetAssessment)
				assessmentWithID.GET("/generation", assessmentHandler.GetGenerationStatus)
			}
		}

		// Попытки
		attempts := api.Group("/attempts")
		attempts.Use(authMiddleware.RequireAuth())
		{
			attempts.POST("", attemptHandler.CreateAttempt)

			attemptWithID := attempts.Group("/:id")
			attemptWithID.Use(middleware.ExtractUintParam("id", "attemptID"))
			{
				attemptWithID.GET("", attemptHandler.GetAttempt)
				attemptWithID.GET("/assessment", attemptHandler.GetAttemptAssessment)
				attemptWithID.GET("/statistics", attemptHandler.GetAttemptStatistics)
				attemptWithID.POST("/pause", attemptHandler.PauseAttempt)
				attemptWithID.POST("/resume", attemptHandler.ResumeAttempt)
				attemptWithID.POST("/complete", attemptHandler.CompleteAttempt)
				attemptWithID.POST("/fullscreen", attemptHandler.EnterFullScreen)

				attemptWithID.POST("/answers", answerHandler.SaveAnswer)
				attemptWithID.GET("/answers", answerHandler.GetAnswers)
			}
		}

		// Прокторинг (лимит по агенту: клиент батчит телеметрию)
		proctoring := api.Group("/proctoring")
		proctoring.Use(authMiddleware.RequireAuth())
		proctoring.Use(rateLimiter.LimitByAgent(middleware.ViolationIngestRateLimitConfig()))
		{
			proctoring.POST("/sessions", proctoringHandler.GetOrCreateSession)
			proctoring.POST("/violations", proctoringHandler.LogViolation)
			proctoring.POST("/violations/batch", proctoringHandler.LogViolationBatch)
		}

		// Административные маршруты
		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			admin.POST("/assessments", assessmentHandler.CreateAssessment)

			adminAssessment := admin.Group("/assessments/:id")
			adminAssessment.Use(middleware.ExtractUintParam("id", "assessmentID"))
			{
				adminAssessment.DELETE("/generation", assessmentHandler.CancelGeneration)
				adminAssessment.GET("/results", assessmentHandler.GetAssessmentResults)
				adminAssessment.GET("/results/export", assessmentHandler.ExportAssessmentResults)
			}

			admin.POST("/questions", questionHandler.BulkUploadQuestions)
			admin.GET("/questions/stats", questionHandler.GetPoolStats)
			admin.DELETE("/questions/:id",
				middleware.ExtractUintParam("id", "questionID"),
				questionHandler.DeactivateQuestion)

			adminAttempt := admin.Group("/attempts/:id")
			adminAttempt.Use(middleware.ExtractUintParam("id", "attemptID"))
			{
				adminAttempt.POST("/evaluate",
					rateLimiter.LimitByAgent(middleware.EvaluationRateLimitConfig()),
					evaluationHandler.EvaluateAttempt)
				adminAttempt.GET("/violations", proctoringHandler.GetSessionLogs)
			}
		}
	}

	// WebSocket маршрут приема телеметрии
	router.GET("/ws/proctoring", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	// Ждем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown с таймаутом
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
