package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"T2V/api"
	"T2V/controller"
	"T2V/dao/mysql"
	"T2V/dao/store"
	"T2V/logic"
	"T2V/pkg/ai"
	"T2V/pkg/config"
	"T2V/pkg/logger"
	"T2V/pkg/queue"
	"T2V/pkg/render"
	"T2V/pkg/snowflake"
	"T2V/pkg/sse"
	"T2V/pkg/storage"
	"T2V/util"
	"T2V/worker"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	lg, err := logger.Init(gin.Mode() != gin.ReleaseMode)
	if err != nil {
		panic(err)
	}
	defer lg.Sync()

	if err := snowflake.Init(cfg.NodeID); err != nil {
		zap.L().Fatal("failed to init snowflake", zap.Error(err))
	}

	redisClient, err := store.NewClient(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		zap.L().Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	jobStore := store.NewJobStore(redisClient)

	var archive logic.Archiver
	if cfg.MySQLDSN != "" {
		db, err := mysql.Connect(cfg.MySQLDSN)
		if err != nil {
			zap.L().Fatal("failed to connect to mysql", zap.Error(err))
		}
		defer db.Close()
		archive = mysql.NewJobArchive(db)
	}

	hub := sse.NewHub()
	go hub.Run()

	jobs := logic.NewJobService(jobStore, archive, hub)

	vq, err := queue.NewVideoQueue(cfg.AMQPDSN, jobStore, cfg.ConcurrentJobs, cfg.JobStartsPerMin)
	if err != nil {
		zap.L().Fatal("failed to init rabbitmq", zap.Error(err))
	}
	defer vq.Close()

	ws, err := util.NewWorkspace(cfg.TempDir)
	if err != nil {
		zap.L().Fatal("failed to prepare workspace", zap.Error(err))
	}

	runner := render.ExecRunner{}

	imageProvider, err := ai.NewImageProvider(cfg, runner)
	if err != nil {
		zap.L().Fatal("failed to init image provider", zap.Error(err))
	}
	voiceProvider, err := ai.NewVoiceProvider(cfg, runner)
	if err != nil {
		zap.L().Fatal("failed to init voice provider", zap.Error(err))
	}

	var enhancer *ai.PromptEnhancer
	if cfg.PromptEnhancer {
		enhancer, err = ai.NewPromptEnhancer(context.Background(), cfg.GeminiModel)
		if err != nil {
			zap.L().Warn("prompt enhancer unavailable, using raw prompts", zap.Error(err))
			enhancer = nil
		}
	}

	images := ai.NewImagePipeline(imageProvider, enhancer, runner, ws, ai.ImageCallInterval)
	voices := ai.NewVoicePipeline(voiceProvider, runner, ws, ai.VoiceCallInterval)
	assembler := render.NewAssembler(runner, ws, cfg.MusicDir)

	publisher, err := storage.NewSpacesClient(cfg)
	if err != nil {
		zap.L().Fatal("failed to init spaces client", zap.Error(err))
	}

	processor := worker.NewProcessor(jobs, jobStore, images, voices, assembler, publisher, ws, queue.MaxAttempts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumeDone := make(chan error, 1)
	go func() {
		consumeDone <- vq.Consume(ctx, processor.Process)
	}()

	janitor := worker.NewJanitor(jobStore, vq)
	go janitor.Run(ctx)

	router := api.NewRouter(controller.NewVideoController(jobs, vq), hub)
	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("http server failed", zap.Error(err))
		}
	}()
	zap.L().Info("server started", zap.String("addr", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("shutting down", zap.Duration("grace", cfg.ShutdownGrace))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("http shutdown error", zap.Error(err))
	}

	// stop queue intake; in-flight jobs drain within the grace window
	cancel()
	select {
	case <-consumeDone:
	case <-shutdownCtx.Done():
		zap.L().Warn("shutdown grace expired with jobs in flight")
	}
	zap.L().Info("server stopped")
}
