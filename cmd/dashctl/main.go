// Command dashctl is a small operator client for the dashboard API. It signs
// in, uploads a profile image and follows the live stats feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"admin-dashboard/backend/pkg/logger"
)

func main() {
	baseURL := flag.String("base", "http://localhost:5000", "Dashboard base URL")
	username := flag.String("user", "", "Username to sign in with")
	password := flag.String("password", os.Getenv("DASHCTL_PASSWORD"), "Password (defaults to $DASHCTL_PASSWORD)")
	uploadPath := flag.String("upload", "", "Upload this file as the profile image")
	statsPtr := flag.Bool("stats", false, "Print dashboard stats once")
	watchPtr := flag.Bool("watch", false, "Follow the live stats feed")
	helpPtr := flag.Bool("help", false, "Show usage information")
	flag.Parse()

	if *helpPtr || *username == "" || (*uploadPath == "" && !*statsPtr && !*watchPtr) {
		fmt.Println("Dashboard client usage:")
		fmt.Println("  -user NAME      Username to sign in with (required)")
		fmt.Println("  -password PASS  Password, or set DASHCTL_PASSWORD")
		fmt.Println("  -upload FILE    Upload FILE as the profile image")
		fmt.Println("  -stats          Print dashboard stats once")
		fmt.Println("  -watch          Follow the live stats feed until interrupted")
		fmt.Println("  -base URL       Dashboard base URL")
		os.Exit(0)
	}

	log := logger.New(logger.Config{Level: "info", Output: os.Stderr})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newClient(*baseURL)
	if err := c.Login(ctx, *username, *password); err != nil {
		log.LogError(err, "Sign in failed")
		os.Exit(1)
	}

	if *uploadPath != "" {
		path, err := c.UploadImage(ctx, *uploadPath)
		if err != nil {
			log.LogError(err, "Upload failed")
			os.Exit(1)
		}
		fmt.Printf("Profile image stored at %s\n", path)
	}

	if *statsPtr {
		stats, err := c.Stats(ctx)
		if err != nil {
			log.LogError(err, "Fetching stats failed")
			os.Exit(1)
		}
		printStats(stats)
	}

	if *watchPtr {
		log.Info("Following live stats, press Ctrl+C to exit")
		err := c.Watch(ctx, func(stats map[string]interface{}) {
			printStats(stats)
		})
		if err != nil {
			log.LogError(err, "Live stats feed closed")
			os.Exit(1)
		}
	}
}

func printStats(stats map[string]interface{}) {
	fmt.Printf("users=%v sessions=%v requests=%v\n",
		stats["total_users"], stats["active_sessions"], stats["daily_requests"])
}
