package main

import (
	"log"
	"os"

	"github.com/croppers/horizon-ar/internal/app"
	"github.com/croppers/horizon-ar/internal/config"
)

func main() {
	log.Println("starting horizon-ar console subscriber")

	configPath := "horizon_config.txt"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if err := config.InitGlobal(configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsole(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
