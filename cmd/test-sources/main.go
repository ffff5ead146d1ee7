package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/content-factory/topic-monitor/internal/analysis"
	"github.com/content-factory/topic-monitor/internal/config"
	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/sources"
)

func main() {
	keyword := flag.String("keyword", "AI创作", "keyword to search on every platform")
	flag.Parse()

	fmt.Println("🔍 Topic Monitor - Search Source Test")
	fmt.Println("=====================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	router := sources.NewRouterFromConfig(cfg)

	fmt.Printf("\n📡 Searching %q...\n", *keyword)
	fmt.Println(strings.Repeat("-", 40))

	for _, platform := range []models.Platform{models.PlatformWeChat, models.PlatformXiaohongshu} {
		testPlatform(ctx, router, *keyword, platform)
	}

	fmt.Println("\n✅ Search source test completed!")
}

func testPlatform(ctx context.Context, router *sources.Router, keyword string, platform models.Platform) {
	fmt.Printf("\n🔸 %s... ", platform.DisplayName())

	items, err := router.Search(ctx, keyword, platform)
	if err != nil {
		fmt.Printf("❌ ERROR: %v\n", err)
		return
	}
	fmt.Printf("✅ SUCCESS (%d items found)\n", len(items))

	strategy, err := analysis.ForPlatform(platform)
	if err != nil {
		fmt.Printf("   ❌ %v\n", err)
		return
	}
	result := strategy.Aggregate(items)

	fmt.Printf("   📊 items=%d avgReach=%d avgLikes=%d engagement=%s\n",
		result.Stats.TotalItems, result.Stats.AvgReach, result.Stats.AvgLikes, result.Stats.AvgEngagement)
	for i, item := range result.TopByCount {
		fmt.Printf("   %d. %s (👍 %d | 👀 %d | 📊 %s)\n", i+1, item.Title, item.Likes, item.Reads, item.Engagement)
	}
	fmt.Printf("   📝 Shortlist for insights: %d items\n", len(strategy.Shortlist(items)))
}
