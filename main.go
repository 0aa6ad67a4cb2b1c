package main

import (
	"fmt"
	"net/http"
	"time"

	"melodia/auth"
	"melodia/config"
	"melodia/controllers"
	"melodia/database"
	"melodia/repositories"
	"melodia/services"

	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// RequestLogger logs every request after it completes.
func RequestLogger(logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		startTime := time.Now()

		chain.ProcessFilter(req, resp)

		logger.Info("request",
			zap.String("client_ip", req.Request.RemoteAddr),
			zap.String("method", req.Request.Method),
			zap.String("path", req.Request.URL.Path),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("user_agent", req.Request.UserAgent()),
		)
	}
}

func main() {
	// Initialize configs
	config.InitConfig()

	var logger *zap.Logger
	switch config.AppConfig.LogLevel {
	case "debug":
		logger, _ = zap.NewDevelopment()
	default:
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync() // Make sure the buffer is flushed before the program exits

	auth.SetSigningKey([]byte(config.AppConfig.JwtSecret))
	auth.SetTokenTTL(time.Duration(config.AppConfig.TokenTTLHours) * time.Hour)

	db := database.InitDB()
	rdb := database.ConnectRedis(config.AppConfig.RedisURL)

	userRepo := repositories.NewUserRepository(db)
	trackRepo := repositories.NewTrackRepository(db)
	listingCache := services.NewListingCache(rdb, logger)
	userService := services.NewUserService(db, userRepo, trackRepo, listingCache, logger)
	trackService := services.NewTrackService(trackRepo)
	userController := controllers.NewUserController(userService, trackService, logger)

	ws := new(restful.WebService)
	userController.RegisterRoutes(ws)

	container := restful.NewContainer()
	container.Filter(RequestLogger(logger))
	container.Add(ws)

	addr := fmt.Sprintf(":%d", config.AppConfig.HTTPPort)
	logger.Info("starting server", zap.String("addr", addr), zap.String("service", config.AppConfig.ServiceName))
	if err := http.ListenAndServe(addr, container); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
