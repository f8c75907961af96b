// Command doctor checks that the services configured in .env are reachable
// before the API is started.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xyz-asif/chatter/internal/config"
	"github.com/xyz-asif/chatter/internal/database"
	"github.com/xyz-asif/chatter/internal/features/auth"
	"github.com/xyz-asif/chatter/internal/pkg/cloudinary"
	"github.com/xyz-asif/chatter/internal/pkg/statuscache"
)

type check struct {
	name    string
	enabled bool
	run     func(ctx context.Context) error
}

func main() {
	cfg := config.Load()

	checks := []check{
		{"MongoDB", true, func(ctx context.Context) error {
			db, err := database.Connect(cfg.MongoURI, cfg.MongoDB)
			if err != nil {
				return err
			}
			return db.Disconnect(ctx)
		}},
		{"Redis", cfg.RedisURL != "", func(ctx context.Context) error {
			store, err := statuscache.NewRedisStore(cfg.RedisURL, "chatter:")
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Ping(ctx)
		}},
		{"Firebase Auth", cfg.FirebaseCredentialsFile != "" || cfg.FirebaseProjectID != "", func(ctx context.Context) error {
			_, err := auth.InitFirebase(cfg)
			return err
		}},
		{"Cloudinary", cfg.CloudinaryCloudName != "", func(ctx context.Context) error {
			_, err := cloudinary.NewService(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
			return err
		}},
	}

	failed := false
	for _, c := range checks {
		if !c.enabled {
			fmt.Printf("-  %s: not configured\n", c.name)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := c.run(ctx)
		cancel()
		if err != nil {
			failed = true
			fmt.Printf("x  %s: %v\n", c.name, err)
			continue
		}
		fmt.Printf("ok %s\n", c.name)
	}

	if failed {
		os.Exit(1)
	}
	fmt.Printf("\nReady. Uploads go to Cloudinary folder %q.\n", cfg.CloudinaryFolder)
}
