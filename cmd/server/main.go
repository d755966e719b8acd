package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/goalkeeper/internal/server"
	"github.com/dmitrijs2005/goalkeeper/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {

	// optional .env overlay for local runs; missing file is fine
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
