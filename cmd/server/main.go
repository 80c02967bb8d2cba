package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"stability-dashboard/frontend/internal/api"
	"stability-dashboard/frontend/internal/config"
	"stability-dashboard/frontend/internal/predict"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logrus.Fatalf("load configuration: %v", err)
	}

	if level, err := logrus.ParseLevel(strings.TrimSpace(cfg.LogLevel)); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.WithError(err).Warn("unknown log level, keeping info")
	}

	if !cfg.DisableHistory {
		if dir := filepath.Dir(cfg.DBPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logrus.Fatalf("create data directory: %v", err)
			}
		}
	}

	server, err := api.NewServer(api.Config{
		Predictor: predict.Config{
			BaseURL: cfg.PredictorBaseURL,
			Timeout: cfg.PredictorTimeout,
		},
		DefaultCountry: cfg.DefaultCountry,
		DBPath:         cfg.DBPath,
		DisableHistory: cfg.DisableHistory,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	logrus.Infof("starting stability dashboard on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
