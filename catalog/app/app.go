package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/chrismer/biblioteca-service/catalog/config"
	"github.com/chrismer/biblioteca-service/catalog/internal/handler"
	"github.com/chrismer/biblioteca-service/catalog/internal/repository"
	"github.com/chrismer/biblioteca-service/catalog/internal/server"
	"github.com/chrismer/biblioteca-service/catalog/internal/service"
	"github.com/chrismer/biblioteca-service/catalog/migrations"
	"github.com/chrismer/biblioteca-service/pkg/kafka"
	"github.com/chrismer/biblioteca-service/pkg/logger"
	"github.com/chrismer/biblioteca-service/pkg/postgres"
	"go.uber.org/zap"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "catalog")
	db, err := postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		log.Fatal("db init", zap.Error(err))
	}
	repo, err := repository.NewRepository(db, log)
	if err != nil {
		log.Fatal("repo", zap.Error(err))
	}

	var producer sarama.SyncProducer
	if cfg.Kafka.Enabled() {
		producer, err = kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
	}

	placementSvc := service.NewPlacementService(repo, log)
	catalogSvc := service.NewCatalogService(repo, placementSvc, log)
	loanSvc := service.NewLoanService(repo, producer, log)

	h := handler.New(catalogSvc, loanSvc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	if producer != nil {
		if err = producer.Close(); err != nil {
			log.Error("producer close", zap.Error(err))
		}
	}
	db.Close()
	log.Info("Graceful shutdown finished")
}
