package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/content-factory/topic-monitor/internal/config"
	"github.com/content-factory/topic-monitor/internal/insights"
	"github.com/content-factory/topic-monitor/internal/lock"
	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/monitoring"
	"github.com/content-factory/topic-monitor/internal/sources"
	"github.com/content-factory/topic-monitor/internal/storage"
)

// consoleDispatcher prints cards instead of posting them
type consoleDispatcher struct{}

func (consoleDispatcher) Push(ctx context.Context, webhookURL string, report *models.NotificationReport) models.DeliveryResult {
	fmt.Println("\n" + strings.Repeat("=", 70))
	fmt.Printf("📨 %s选题分析日报 - %s (report #%d)\n", report.Platform.DisplayName(), report.Keyword, report.ReportID)
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("📊 items=%d avgReach=%d avgLikes=%d engagement=%s\n",
		report.Stats.TotalItems, report.Stats.AvgReach, report.Stats.AvgLikes, report.Stats.AvgEngagement)
	for i, item := range report.TopByCount {
		fmt.Printf("   %d. %s (👍 %d)\n", i+1, item.Title, item.Likes)
	}
	if report.Insights != nil {
		fmt.Println("✨ Insights:")
		for _, in := range report.Insights.Insights {
			fmt.Printf("   • [%s] %s\n", in.Trend, in.Title)
		}
		for _, topic := range report.Insights.RecommendedTopics {
			fmt.Printf("   🎯 %s\n", topic)
		}
	}
	fmt.Printf("🔗 %s\n", report.ReportURL)
	return models.DeliveryResult{Success: true, Response: json.RawMessage(`{"code":0,"msg":"dry run"}`)}
}

func (consoleDispatcher) Test(ctx context.Context, webhookURL string) models.DeliveryResult {
	return models.DeliveryResult{Success: true}
}

func main() {
	keywords := flag.String("keywords", "AI创作", "comma-separated keywords")
	platform := flag.String("platform", string(models.PlatformWeChat), "wechat or xiaohongshu")
	flag.Parse()

	fmt.Println("🧪 Topic Monitor - Local Integration Test")
	fmt.Println("=========================================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	p, err := models.ParsePlatform(*platform)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store := storage.NewMemoryStore()
	if err := store.SetSetting(ctx, storage.SettingFeishuWebhook, "console://dry-run"); err != nil {
		log.Fatal(err)
	}
	for _, kw := range strings.Split(*keywords, ",") {
		if kw = strings.TrimSpace(kw); kw == "" {
			continue
		}
		if _, err := store.CreateKeyword(ctx, kw, p, true); err != nil {
			log.Fatalf("Failed to register %q: %v", kw, err)
		}
	}

	var requester insights.Requester
	if completer := insights.NewCompleter(cfg); completer != nil {
		requester = insights.NewAnalyzer(completer)
		fmt.Printf("🤖 Insights by %s\n", completer.ModelName())
	} else {
		fmt.Println("⚠️  No LLM API key configured, insights are skipped")
	}

	service := monitoring.NewService(cfg, store, sources.NewRouterFromConfig(cfg), requester,
		consoleDispatcher{}, lock.NewLocalLocker())

	fmt.Println("🔍 Running full analysis cycle against the real search and model APIs...")
	summary, err := service.RunAnalysis(ctx)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	fmt.Printf("\n📋 %d/%d succeeded in %s\n", summary.Succeeded(), len(summary.Results),
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second))
	for _, r := range summary.Results {
		status := "✅"
		if !r.Success {
			status = "❌ " + r.Error
		}
		fmt.Printf("   • %s (%s) %s\n", r.Keyword, r.Platform.DisplayName(), status)
	}
	fmt.Println("\n📈 Metrics:")
	fmt.Println(service.GetMetrics())
}
