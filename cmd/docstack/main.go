package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/docstack/docstack/internal/config"
	"github.com/docstack/docstack/internal/db"
	"github.com/docstack/docstack/internal/filestore"
	"github.com/docstack/docstack/internal/handler"
	"github.com/docstack/docstack/internal/job"
	"github.com/docstack/docstack/internal/middleware"
	"github.com/docstack/docstack/internal/repo"
	"github.com/docstack/docstack/internal/schedule"
	"github.com/docstack/docstack/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docstack",
		Short: "docstack document control server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docstack server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Int("approval_stages", cfg.Workflow.ApprovalStages),
	)

	userRepo := repo.NewUserRepo(conn)
	docRepo := repo.NewDocumentRepo(conn)
	versionRepo := repo.NewVersionRepo(conn)
	lockRepo := repo.NewLockRepo(conn)
	viewRepo := repo.NewViewRepo(conn)
	auditRepo := repo.NewAuditRepo(conn)
	attachmentRepo := repo.NewAttachmentRepo(conn)

	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	lockService := service.NewLockService(lockRepo, versionRepo, userRepo,
		time.Duration(cfg.Lock.DefaultTTLMinutes)*time.Minute,
		time.Duration(cfg.Lock.MaxTTLMinutes)*time.Minute)
	contentService := service.NewContentService(versionRepo, lockService, auditService)
	workflowService := service.NewWorkflowService(versionRepo, docRepo, lockRepo, viewRepo, userRepo, auditService, cfg.Workflow.ApprovalStages)
	lineageService := service.NewLineageService(versionRepo, docRepo, auditService)
	documentService := service.NewDocumentService(docRepo, versionRepo, auditService)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	attachmentService := service.NewAttachmentService(attachmentRepo, versionRepo, store, auditService)

	deps := handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authService),
		Documents:   handler.NewDocumentHandler(documentService, lineageService),
		Versions:    handler.NewVersionHandler(versionRepo, contentService, lineageService, documentService),
		Locks:       handler.NewLockHandler(lockService),
		Workflow:    handler.NewWorkflowHandler(workflowService),
		Audit:       handler.NewAuditHandler(auditService),
		Attachments: handler.NewAttachmentHandler(attachmentService),
		JWTSecret:   []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewLockSweepJob(lockService), cfg.Lock.SweepSpec); err != nil {
		return fmt.Errorf("schedule lock sweep: %w", err)
	}
	if err := scheduler.AddJob(job.NewAuditRetentionJob(auditService, cfg.Audit.RetentionDays), cfg.Audit.RetentionSpec); err != nil {
		return fmt.Errorf("schedule audit retention: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
