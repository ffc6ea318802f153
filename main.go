package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"wertchat/app/client/chatproxy"
	"wertchat/app/client/llm"
	"wertchat/app/config"
	"wertchat/app/server"
	"wertchat/app/service/booking"
	"wertchat/app/service/chat"
	"wertchat/app/service/store"
	"wertchat/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, chatproxy.NewClient)
	do.Provide(di, llm.NewClient)
	do.Provide(di, chat.NewService)
	do.Provide(di, store.New)
	do.Provide(di, booking.New)
	do.Provide(di, server.New)

	slog.Info("Service started", "listen", cfg.Server.Listen, "upstream", cfg.Upstream.Mode)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	srv := do.MustInvoke[*server.Server](di)

	var eg errgroup.Group

	eg.Go(srv.Run)
	eg.Go(func() error {
		<-appCtx.Done()
		return srv.Shutdown()
	})

	if err = eg.Wait(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
