package main

import (
	"github.com/opslens/opslens/internal/server"
	"github.com/opslens/opslens/internal/util"
	"github.com/opslens/opslens/pkg/logger"
	"github.com/opslens/opslens/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
