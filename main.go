package main

import (
	"fmt"

	"Filmmaker-server/config"
	"Filmmaker-server/models"
	"Filmmaker-server/routers"
	"Filmmaker-server/service"
)

func main() {
	config.InitConfig()
	fmt.Println("Server starting on port", config.AppConfig.Server.Port)
	models.InitDB()
	fmt.Println("Database initialized")

	service.InitQueue()
	fmt.Println("Queue initialized")

	service.InitMinIO()
	service.InitAI()

	processor := service.NewProcessor()
	processor.StartProcessor(config.AppConfig.Pipeline.Concurrency)

	r := routers.InitRouter()
	r.Run(config.AppConfig.Server.Port)
}
