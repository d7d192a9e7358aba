package main

import (
	"go.uber.org/zap"

	"github.com/somanshu-agarwal/BareMinimum/internal/clients/cache"
	"github.com/somanshu-agarwal/BareMinimum/internal/config"
	"github.com/somanshu-agarwal/BareMinimum/internal/logger"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/remotestore"
	"github.com/somanshu-agarwal/BareMinimum/internal/tracing"
)

func main() {
	logger.Info("Remote store init - start")

	conf, err := config.New()
	if err != nil {
		logger.Fatal("failed to init config", zap.Error(err))
	}

	closer, err := tracing.Init("baremin-remoted")
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer closer.Close()
	}

	db, err := remotestore.NewPostgresStorage(conf.Postgres())
	if err != nil {
		logger.Fatal("failed to init postgres", zap.Error(err))
	}

	var router = remotestore.NewRouter(db, nil)
	if len(conf.Memcached().Hosts()) > 0 {
		mc, err := cache.NewMemcache(conf.Memcached())
		if err != nil {
			logger.Fatal("failed to init memcache", zap.Error(err))
		}
		router = remotestore.NewRouter(db, mc)
	}

	logger.Info("Remote store init - end")

	if err = router.Run(conf.Server().Addr()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
