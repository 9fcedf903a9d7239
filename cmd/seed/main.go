// Seed creates two demo tasks (one file collection, one online form) and
// prints an admin token for exercising the operator endpoints.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"filecollect/internal/config"
	"filecollect/internal/database"
	"filecollect/internal/domain/submission"
	"filecollect/internal/domain/task"
	"filecollect/internal/excel"
	"filecollect/internal/merge"
	jwtsvc "filecollect/internal/pkg/jwt"
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

	svc := task.NewService(task.NewRepository(db), cfg.StorageRoot)
	ctx := context.Background()

	collection, err := svc.CreateTask(ctx, task.CreateInput{
		Title:             "周报收集",
		TaskType:          task.TypeFileCollection,
		VersionMode:       task.ModeAutoVersion,
		Password:          "demo123",
		AllowedExtensions: []string{".xlsx", ".xls"},
		AllowAttachments:  true,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := writeTemplate(collection); err != nil {
		log.Fatal(err)
	}
	log.Printf("seeded collection task slug=%s", collection.Slug)

	form, err := svc.CreateTask(ctx, task.CreateInput{
		Title:          "活动报名",
		TaskType:       task.TypeOnlineForm,
		VersionMode:    task.ModeAutoVersion,
		MaxSubmissions: 100,
		Columns: []merge.ColumnDefinition{
			{Name: "部门", Type: merge.ColumnText, Required: true, MergeMode: merge.ModeAccumulate},
			{Name: "人数", Type: merge.ColumnNumber, Required: true, MergeMode: merge.ModeGroupBy, GroupByField: "部门"},
			{Name: "需要住宿", Type: merge.ColumnBoolean, MergeMode: merge.ModeAccumulate},
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("seeded form task slug=%s", form.Slug)

	token, err := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL).GenerateToken("seed", "admin")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("admin token:", token)
}

func writeTemplate(t *task.Task) error {
	return excel.NewCodec().WriteRows(t.TemplatePath, [][]string{
		{"姓名", "本周工作", "下周计划"},
	})
}
