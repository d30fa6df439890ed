package main

import (
	stdLog "log"
	"time"

	"github.com/chrismer/biblioteca-service/catalog/app"
	"github.com/chrismer/biblioteca-service/catalog/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Print("load envs from .env ", zap.Error(err))
	}
	cfg := config.NewConfig(
		config.WithWriteTimeout(time.Minute),
	)

	app.Run(cfg)
}
