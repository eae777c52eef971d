package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	_ "github.com/lib/pq"

	"github.com/yourusername/quiz-tournament/internal/config"
	"github.com/yourusername/quiz-tournament/internal/domain/entity"
	pgRepo "github.com/yourusername/quiz-tournament/internal/repository/postgres"
	"github.com/yourusername/quiz-tournament/internal/service"
	"github.com/yourusername/quiz-tournament/pkg/database"
)

func main() {
	action := flag.String("action", "up", "up | down | force | version | seed | stats")
	path := flag.String("path", database.DefaultMigrationsPath, "каталог SQL-миграций")
	steps := flag.Int("steps", 1, "количество миграций для отката (down)")
	version := flag.Int("version", -1, "версия для force")
	seedFile := flag.String("file", "", "JSON-файл с вопросами для seed (по умолчанию tournament.questions_file)")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dsn := cfg.Database.PostgresConnectionString()
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqlDB.Close()

	switch *action {
	case "up":
		err = database.MigrateDB(sqlDB, *path)
	case "down":
		err = database.RollbackDB(sqlDB, *path, *steps)
	case "force":
		if *version < 0 {
			log.Fatal("-version is required for force")
		}
		err = database.ForceVersion(sqlDB, *path, *version)
	case "version":
		var (
			v     uint
			dirty bool
		)
		v, dirty, err = database.MigrationVersion(sqlDB, *path)
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", v, dirty)
		}
	case "seed":
		file := *seedFile
		if file == "" {
			file = cfg.Tournament.QuestionsFile
		}
		err = seed(dsn, file)
	case "stats":
		err = stats(dsn)
	default:
		log.Fatalf("unknown action %q", *action)
	}
	if err != nil {
		log.Fatalf("[Migrate] %s: %v", *action, err)
	}
}

// seed загружает вопросы из JSON-файла в таблицу questions
func seed(dsn, file string) error {
	questions, err := service.LoadQuestionsFile(file)
	if err != nil {
		return err
	}

	valid := make([]entity.Question, 0, len(questions))
	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			log.Printf("[Migrate] Пропущен вопрос #%d: %v", i+1, err)
			continue
		}
		q := questions[i]
		q.ID = 0
		valid = append(valid, q)
	}

	db, err := database.NewPostgresDB(dsn, false)
	if err != nil {
		return err
	}
	if err := pgRepo.NewQuestionRepo(db).CreateBatch(valid); err != nil {
		return fmt.Errorf("failed to seed questions: %w", err)
	}
	log.Printf("[Migrate] Добавлено %d вопросов из %s", len(valid), file)
	return nil
}

// stats печатает количество вопросов по уровням сложности
func stats(dsn string) error {
	db, err := database.NewPostgresDB(dsn, false)
	if err != nil {
		return err
	}
	counts, err := pgRepo.NewQuestionRepo(db).CountByDifficulty()
	if err != nil {
		return err
	}

	levels := make([]int, 0, len(counts))
	for d := range counts {
		levels = append(levels, d)
	}
	sort.Ints(levels)
	for _, d := range levels {
		fmt.Printf("difficulty %d: %d\n", d, counts[d])
	}
	return nil
}
