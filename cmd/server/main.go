package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/packkeeper/internal/server"
	"github.com/dmitrijs2005/packkeeper/internal/server/config"
	"github.com/dmitrijs2005/packkeeper/internal/server/repositories/repomanager"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg, repomanager.NewPostgresRepositoryManager())

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
