// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/ModiApp/ModiServer/internal/auth"
	"github.com/ModiApp/ModiServer/internal/database"
	"github.com/ModiApp/ModiServer/internal/handlers"
	"github.com/ModiApp/ModiServer/internal/historian"
	"github.com/ModiApp/ModiServer/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Persistence is optional: without Redis the server still runs games, it
	// just keeps no durable history.
	if os.Getenv("REDIS_ADDR") != "" {
		if err := historian.ConnectRedis(); err != nil {
			log.Fatalf("redis: %v", err)
		}
	}
	if os.Getenv("PG_HOST") != "" {
		database.ConnectDB()
	}

	srv := handlers.NewGameServer(logger)

	mux := http.NewServeMux()
	mux.Handle("/game/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWSHandler(logger, srv),
	)))
	mux.Handle("/game/", middleware.LogMiddleware(logger)(srv))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
