// 开发环境初始化脚本：从 YAML 写入示例测试题，并签发一个本地调试用的 JWT
//
// 用法: go run scripts/seed_tests.go -config configs -file configs/seed_tests.yaml -user 1

package main

import (
	"assessment_backend/internal/config"
	"assessment_backend/internal/model"
	"assessment_backend/internal/repository"
	"assessment_backend/internal/util"
	"assessment_backend/pkg/database"
	"assessment_backend/pkg/logger"
	"assessment_backend/pkg/scoring"
	"context"
	"flag"
	"log"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Tests []struct {
		Title       string             `yaml:"title"`
		Description string             `yaml:"description"`
		Published   bool               `yaml:"published"`
		Questions   []scoring.Question `yaml:"questions"`
	} `yaml:"tests"`
}

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	file := flag.String("file", "configs/seed_tests.yaml", "示例测试题文件")
	userID := flag.Uint("user", 1, "签发 token 使用的用户 ID")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.InitLogger(cfg)

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("无法读取测试题文件: %v", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("解析测试题文件失败: %v", err)
	}

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	repo := repository.NewTestRepository(db)
	ctx := context.Background()
	for _, st := range seed.Tests {
		for i := range st.Questions {
			st.Questions[i].Index = i
			if _, err := st.Questions[i].Variant(); err != nil {
				log.Fatalf("测试 %q 第 %d 题无效: %v", st.Title, i+1, err)
			}
		}
		t := &model.Test{
			Title:       st.Title,
			Description: st.Description,
			IsPublished: st.Published,
			Questions:   st.Questions,
		}
		if err := repo.Create(ctx, t); err != nil {
			log.Fatalf("写入测试失败: %v", err)
		}
		logger.Log.Info("Seeded test", zap.String("id", t.ID), zap.String("title", t.Title), zap.Int("questions", len(t.Questions)))
	}

	token, err := util.GenerateJWT(*userID, cfg.JWT.Secret, cfg.JWT.ExpireTime)
	if err != nil {
		log.Fatalf("签发 token 失败: %v", err)
	}
	log.Printf("完成！ASSESSMENT_TOKEN=%s", token)
}
