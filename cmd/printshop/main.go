package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/printshop/internal/app"
	"github.com/vladislavdragonenkov/printshop/internal/version"
)

// loadDotEnv подхватывает .env для локального запуска; отсутствие файла не ошибка.
// Уже заданные переменные окружения не перезаписываются.
func loadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(lvl)
	return nil
}

func main() {
	if err := loadDotEnv(); err != nil {
		log.WithError(err).Fatal("failed to load .env")
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := setupLogger(cfg.LogLevel); err != nil {
		log.WithError(err).Fatal("invalid log level")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":        version.String(),
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"kafka_enabled":  cfg.KafkaEnabled(),
	}).Info("запускаем printshop")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("printshop остановлен")
}
