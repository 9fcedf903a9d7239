package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"filecollect/internal/config"
	"filecollect/internal/database"
	"filecollect/internal/domain/consolidate"
	"filecollect/internal/domain/distribution"
	"filecollect/internal/domain/submission"
	"filecollect/internal/domain/task"
	"filecollect/internal/excel"
	"filecollect/internal/merge"
	"filecollect/internal/middleware"
	jwtsvc "filecollect/internal/pkg/jwt"
	"filecollect/internal/storage"
)

func main() {
	cfg, err := config.LoadRuntimeConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(cfg.StorageRoot, 0755); err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(&task.Task{}, &task.TaskAttachment{}, &submission.Submission{}); err != nil {
		log.Fatal(err)
	}

	taskRepo := task.NewRepository(db)
	submissionRepo := submission.NewRepository(db)

	serializer := storage.NewSerializer()
	versioner := storage.NewVersioner()
	engine := merge.NewEngine(excel.NewCodec(), storage.NewSelector())

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	taskService := task.NewService(taskRepo, cfg.StorageRoot)
	taskHandler := task.NewHandler(taskService)

	submissionService := submission.NewService(submissionRepo, taskRepo, serializer, versioner)
	submissionHandler := submission.NewHandler(submissionService, taskService)

	distributionHandler := distribution.NewHandler(taskService, submissionService)

	consolidateService := consolidate.NewService(taskRepo, engine)
	consolidateHandler := consolidate.NewHandler(consolidateService)

	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorLogger())

	api := r.Group("/api")
	{
		// public, submitter-facing
		task.RegisterRoutes(api, taskHandler)
		submission.RegisterRoutes(api, submissionHandler)
		distribution.RegisterRoutes(api, distributionHandler)

		// operator endpoints
		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdmin(j))
		{
			task.RegisterAdminRoutes(admin, taskHandler)
			submission.RegisterAdminRoutes(admin, submissionHandler)
			consolidate.RegisterAdminRoutes(admin, consolidateHandler)
		}
	}

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
