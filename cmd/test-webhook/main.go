package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/content-factory/topic-monitor/internal/config"
	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/notifications"
)

func main() {
	webhookURL := flag.String("webhook", "", "Feishu webhook URL (defaults to FEISHU_WEBHOOK_URL)")
	sample := flag.Bool("sample", false, "send a sample report card instead of the connectivity message")
	flag.Parse()

	fmt.Println("🧪 Topic Monitor - Webhook Test")
	fmt.Println("===============================")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	target := *webhookURL
	if target == "" {
		target = cfg.FeishuWebhookURL
	}
	if target == "" {
		log.Fatal("No webhook URL: pass -webhook or set FEISHU_WEBHOOK_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := notifications.NewFeishuClient(cfg.SearchPeriodDays)

	var result models.DeliveryResult
	if *sample {
		fmt.Println("📨 Sending sample report card...")
		result = client.Push(ctx, target, sampleReport(cfg))
	} else {
		fmt.Println("📨 Sending connectivity test...")
		result = client.Test(ctx, target)
	}

	if !result.Success {
		fmt.Printf("❌ FAILED: %s\n", result.Error)
		if len(result.Response) > 0 {
			fmt.Printf("   Response: %s\n", result.Response)
		}
		os.Exit(1)
	}
	fmt.Printf("✅ Delivered. Response: %s\n", result.Response)
}

func sampleReport(cfg *config.Config) *models.NotificationReport {
	return &models.NotificationReport{
		Keyword:   "AI创作",
		Platform:  models.PlatformWeChat,
		ReportID:  1,
		ReportURL: cfg.ReportURL(1),
		Stats: models.Stats{
			TotalItems:    20,
			AvgReach:      12850,
			AvgLikes:      236,
			AvgEngagement: "1.8%",
		},
		TopByCount: []models.RankedItem{
			{Title: "十款 AI 写作工具横评", Likes: 1520, Reads: 86000, Engagement: "1.8%", URL: "https://mp.weixin.qq.com/s/example1"},
			{Title: "我用 AI 做了 30 天公众号", Likes: 980, Reads: 41000, Engagement: "2.4%", URL: "https://mp.weixin.qq.com/s/example2"},
			{Title: "提示词写作的五个误区", Likes: 640, Reads: 23000, Engagement: "2.8%"},
		},
		Insights: &models.InsightBundle{
			Insights: []models.Insight{
				{Title: "工具横评持续走强", Description: "对比类内容的点赞与转发均高于平均水平", Trend: models.TrendRising},
				{Title: "个人实践记录受欢迎", Description: "真实的长期实验更易引发讨论", Trend: models.TrendStable},
			},
			RecommendedTopics: []string{"AI 写作工具年度横评", "30 天 AI 辅助创作实验"},
		},
		Date: time.Now().In(cfg.Location()),
	}
}
