package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/acordova/formbox/app"
	"github.com/acordova/formbox/config"
	"github.com/acordova/formbox/database"
	"github.com/acordova/formbox/httpx"
	"github.com/acordova/formbox/log"
	"github.com/acordova/formbox/media"
	"github.com/acordova/formbox/routes"
	"github.com/acordova/formbox/store"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	mediaStore, err := media.NewDirStore(cfg.UploadDir)
	if err != nil {
		log.Fatal("main.media:", err)
	}

	app := app.App{
		Store:        store.New(db),
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Media:        mediaStore,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
