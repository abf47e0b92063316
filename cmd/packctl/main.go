package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/packkeeper/internal/client/cli"
	"github.com/dmitrijs2005/packkeeper/internal/client/config"
	"github.com/dmitrijs2005/packkeeper/internal/flagx"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg := config.LoadConfig()
	args := flagx.PositionalArgs(os.Args[1:], []string{"-a", "-h", "-t", "-c", "-config"})

	code := cli.NewApp(cfg).Run(ctx, args)
	stop()
	os.Exit(code)

}
