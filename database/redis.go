package database

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

var Rdb *redis.Client

// ConnectRedis opens the client used by the user-listing cache. The cache is
// optional: an empty URL or an unreachable server just disables it.
func ConnectRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("Invalid redis URL, listing cache disabled: %v", err)
		return nil
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("Redis unreachable, listing cache disabled: %v", err)
		return nil
	}

	Rdb = client
	log.Println("Connected to Redis.")
	return client
}
