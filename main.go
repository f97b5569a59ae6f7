package main

import (
	"net/http"

	"workhours/config"
	"workhours/database"
	"workhours/handlers"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}

	router := handlers.NewRouter(cfg, db, log)

	log.Infof("server starting on port %s", cfg.ServerPort)
	log.Fatal(http.ListenAndServe(":"+cfg.ServerPort, router))
}
