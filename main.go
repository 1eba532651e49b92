package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/cupogo/andvari/utils/zlog"

	"github.com/brandgrowthos/bgos/htdocs"
	"github.com/brandgrowthos/bgos/pkg/services/backend"
	"github.com/brandgrowthos/bgos/pkg/services/notify"
	"github.com/brandgrowthos/bgos/pkg/services/stores"
	"github.com/brandgrowthos/bgos/pkg/settings"
	"github.com/brandgrowthos/bgos/pkg/web"
)

func main() {
	var usage bool
	flag.BoolVar(&usage, "usage", false, "show usage")
	flag.Parse()
	if usage {
		_ = settings.Usage()
		return
	}

	var zlogger *zap.Logger
	if settings.InDevelop() {
		zlogger, _ = zap.NewDevelopment()
	} else {
		zlogger, _ = zap.NewProduction()
	}
	sugar := zlogger.Sugar()
	zlog.Set(sugar)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if settings.Current.SyncBaseURL != "" && settings.Current.UserID != "" {
		poller := notify.NewPoller(
			backend.NewClient(""), stores.Sgt().State(), settings.Current.UserID)
		go poller.Run(ctx)
	}

	srv := web.New(web.Config{
		Addr:       settings.Current.HTTPListen,
		Debug:      settings.InDevelop(),
		DocHandler: http.FileServer(http.FS(htdocs.FS())),
	})

	idleClosed := make(chan struct{})
	go func() {
		quit := make(chan os.Signal, 2)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		sugar.Info("shuting down server...")
		cancel()
		if err := srv.Stop(context.Background()); err != nil {
			sugar.Infow("server shutdown:", "err", err)
		}
		close(idleClosed)
	}()

	if err := srv.Serve(ctx); err != nil {
		sugar.Infow("serve fali", "err", err)
	}

	<-idleClosed
}
