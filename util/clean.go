package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trawler-io/trawler"
	"github.com/trawler-io/trawler/mongodb"
	"github.com/trawler-io/trawler/redis"
)

func init() {
	UtilCommand.AddCommand(&cleanCommand)
}

var cleanCommand = cobra.Command{
	Use:   "clean",
	Short: "Wipe all crawl state",
	Long: `Clean deletes the frontier, visited set, rate limiter windows, robots
cache and run counters from Redis, and drops the pages collection from
MongoDB. The next run starts from nothing.
`,
	Run: cleanFunc,
}

func cleanFunc(cmd *cobra.Command, args []string) {
	if ConfigPath != "" {
		trawler.MustReadConfigFile(ConfigPath)
	}
	ctx := context.Background()

	client, err := redis.NewClient(trawler.Config.Redis.URL)
	if err != nil {
		panic(fmt.Sprintf("Failed connecting to Redis: %v", err))
	}
	err = client.Del(ctx,
		redis.FrontierKey,
		redis.VisitedKey,
		redis.VisitedTSKey,
		redis.RateKey,
		redis.RobotsCacheKey,
		redis.RobotsTSKey,
		redis.RobotsBlockedKey,
	).Err()
	if err != nil {
		panic(fmt.Sprintf("Failed wiping Redis keys: %v", err))
	}

	store, err := mongodb.NewStore(ctx, trawler.Config.Mongo.URL, trawler.Config.Mongo.DB)
	if err != nil {
		panic(fmt.Sprintf("Failed connecting to MongoDB: %v", err))
	}
	defer store.Close(ctx)
	if err := store.Drop(ctx); err != nil {
		panic(fmt.Sprintf("Failed dropping pages collection: %v", err))
	}

	fmt.Println("Crawl state wiped")
}
