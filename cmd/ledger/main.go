package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/somanshu-agarwal/BareMinimum/internal/clients/kafka"
	"github.com/somanshu-agarwal/BareMinimum/internal/clients/kv"
	"github.com/somanshu-agarwal/BareMinimum/internal/clients/remote"
	"github.com/somanshu-agarwal/BareMinimum/internal/clients/tg"
	"github.com/somanshu-agarwal/BareMinimum/internal/config"
	"github.com/somanshu-agarwal/BareMinimum/internal/logger"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/ledger"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/messages"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/sync"
	"github.com/somanshu-agarwal/BareMinimum/internal/tracing"
)

func main() {
	logger.Info("Ledger init - start")

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config", zap.Error(err))
	}

	closer, err := tracing.Init("baremin-ledger")
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer closer.Close()
	}

	blobs, err := kv.NewBadgerStore(conf.Storage())
	if err != nil {
		logger.Fatal("failed to init local storage", zap.Error(err))
	}
	defer blobs.Close()

	store, err := ledger.NewStore(blobs, conf.App().Profile())
	if err != nil {
		logger.Fatal("failed to load profile", zap.Error(err))
	}

	remoteClient := remote.New(conf.Remote())
	puller := sync.NewPuller(store, remoteClient)
	pusher := sync.NewPusher(store, remoteClient)

	var orch *sync.Orchestrator
	if conf.Kafka().Enabled() {
		producer, err := kafka.NewProducer(conf.Kafka())
		if err != nil {
			logger.Fatal("failed to init kafka producer", zap.Error(err))
		}
		defer producer.Close()
		orch = sync.NewOrchestrator(puller, pusher, producer)
	} else {
		orch = sync.NewOrchestrator(puller, pusher, nil)
	}

	service := ledger.NewService(store, orch)

	client, err := tg.New(conf.Telegram())
	if err != nil {
		logger.Fatal("failed to init telegram client", zap.Error(err))
	}
	msgService := messages.NewService(client, service)

	if addr := conf.App().MetricsAddress(); addr != "" {
		go serveMetrics(addr)
	}

	logger.Info("Ledger init - end")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client.ListenUpdates(ctx, msgService)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
