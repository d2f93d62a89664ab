package main

import (
	"log"

	"github.com/inkpost/inkpost/config"
	"github.com/inkpost/inkpost/models"
	"github.com/inkpost/inkpost/routes"
	"github.com/inkpost/inkpost/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	utils.InitRedis(cfg)

	db := config.InitDatabase(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
	)

	router := routes.SetupRouter(db)

	addr := ":" + cfg.AppPort
	utils.Sugar.Infof("inkpost listening on %s", addr)
	if err := utils.GraceServer(addr, router); err != nil {
		utils.Sugar.Fatalf("server exited: %v", err)
	}
}
