package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pvhuy/examhall/config"
	"github.com/pvhuy/examhall/database"
	_ "github.com/pvhuy/examhall/docs" // Swagger docs
	studentctrl "github.com/pvhuy/examhall/internal/controller/student"
	teacherctrl "github.com/pvhuy/examhall/internal/controller/teacher"
	"github.com/pvhuy/examhall/internal/logger"
	"github.com/pvhuy/examhall/internal/model"
	"github.com/pvhuy/examhall/internal/repository"
	"github.com/pvhuy/examhall/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Exam Hall API
// @version 1.0
// @description Timed online quiz exam-session engine: room-code join, server-authoritative timer synchronization, instant grading, violation-to-kick policy, live teacher monitoring.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core application components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // *gorm.DB
			NewGinEngine,
		),

		// Repositories layer
		fx.Provide(
			repository.NewQuizRepository,
			repository.NewQuestionRepository,
			repository.NewResultRepository,
			repository.NewViolationRepository,
			repository.NewRosterRepository,
		),

		// Services layer
		fx.Provide(
			service.NewGradingService,
			service.NewResultService,
			service.NewQuizService,
			service.NewMonitorService,
			service.NewAccessGuard,
			func(rs service.ResultService, db *gorm.DB, cfg *config.Config) service.ViolationService {
				return service.NewViolationService(rs, db, cfg.Exam.ViolationLimit)
			},
		),

		// API controllers layer
		fx.Provide(
			teacherctrl.NewTeacherQuizController,
			studentctrl.NewStudentExamController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.DebugMode)

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Teacher-ID", "X-Student-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	teacherCtrl *teacherctrl.TeacherQuizController,
	studentCtrl *studentctrl.StudentExamController,
) {
	// Teacher routes (prefixed with /api/v1/teacher)
	teacherAPIGroup := router.Group("/api/v1/teacher")
	{
		teacherAPIGroup.POST("/quizzes", teacherCtrl.CreateQuiz)
		teacherAPIGroup.PUT("/quizzes/:quiz_id/status", teacherCtrl.SetStatus)
		teacherAPIGroup.POST("/quizzes/:quiz_id/time", teacherCtrl.AdjustTime)
		teacherAPIGroup.GET("/quizzes/:quiz_id/live", teacherCtrl.GetLiveStats)
		teacherAPIGroup.PUT("/results/:result_id/control", teacherCtrl.ControlResult)
		teacherAPIGroup.POST("/results/:result_id/answers/:question_id/grade", teacherCtrl.GradeAnswer)
	}

	// Student routes (prefixed with /api/v1)
	studentAPIGroup := router.Group("/api/v1")
	{
		studentAPIGroup.POST("/join", studentCtrl.JoinQuiz)
		studentAPIGroup.GET("/quizzes/:quiz_id/status", studentCtrl.GetQuizStatus)
		studentAPIGroup.POST("/results/:result_id/answers", studentCtrl.SubmitAnswer)
		studentAPIGroup.POST("/results/:result_id/violations", studentCtrl.ReportViolation)
		studentAPIGroup.POST("/results/:result_id/finish", studentCtrl.Finish)
		studentAPIGroup.GET("/results/:result_id", studentCtrl.GetResult)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Exam Hall API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Quiz{},
		&model.Question{},
		&model.Option{},
		&model.Result{},
		&model.Answer{},
		&model.Violation{},
		&model.KickRecord{},
		&model.RosterEntry{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
