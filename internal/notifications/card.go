package notifications

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/content-factory/topic-monitor/internal/models"
)

const cardListLimit = 5

var numberPrinter = message.NewPrinter(language.Chinese)

// Feishu interactive card payload
type feishuCardMessage struct {
	MsgType string     `json:"msg_type"`
	Card    feishuCard `json:"card"`
}

type feishuCard struct {
	Header   feishuHeader    `json:"header"`
	Elements []feishuElement `json:"elements"`
}

type feishuHeader struct {
	Title    feishuText `json:"title"`
	Template string     `json:"template"`
}

type feishuText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type feishuElement struct {
	Tag      string         `json:"tag"`
	Text     *feishuText    `json:"text,omitempty"`
	Elements []feishuText   `json:"elements,omitempty"`
	Actions  []feishuButton `json:"actions,omitempty"`
}

type feishuButton struct {
	Tag  string     `json:"tag"`
	Text feishuText `json:"text"`
	Type string     `json:"type"`
	URL  string     `json:"url"`
}

type feishuTextMessage struct {
	MsgType string `json:"msg_type"`
	Content struct {
		Text string `json:"text"`
	} `json:"content"`
}

func formatCount(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}

func platformIcon(p models.Platform) string {
	if p == models.PlatformXiaohongshu {
		return "📕"
	}
	return "📱"
}

func platformTheme(p models.Platform) string {
	if p == models.PlatformXiaohongshu {
		return "red"
	}
	return "blue"
}

func trendIcon(t models.Trend) string {
	switch t {
	case models.TrendRising:
		return "📈"
	case models.TrendDeclining:
		return "📉"
	default:
		return "➡️"
	}
}

func markdown(content string) feishuElement {
	return feishuElement{Tag: "div", Text: &feishuText{Tag: "lark_md", Content: content}}
}

var divider = feishuElement{Tag: "hr"}

// buildCard renders a report into the interactive card layout
func buildCard(report *models.NotificationReport, periodDays int) feishuCardMessage {
	name := report.Platform.DisplayName()
	itemNoun, reachLabel := "文章", "阅读量"
	if report.Platform == models.PlatformXiaohongshu {
		itemNoun, reachLabel = "笔记", "收藏数"
	}

	elements := []feishuElement{
		{Tag: "div", Text: &feishuText{Tag: "plain_text", Content: "📅 " + report.Date.Format("2006/01/02")}},
		divider,
		markdown(fmt.Sprintf("**📊 数据概览**\n\n分析%s数：**%d** 篇\n平均%s：**%s**\n平均点赞数：**%s**\n平均互动率：**%s**",
			itemNoun, report.Stats.TotalItems, reachLabel,
			formatCount(report.Stats.AvgReach), formatCount(report.Stats.AvgLikes), report.Stats.AvgEngagement)),
		divider,
		markdown("**🏆 点赞量TOP5**\n\n" + topList(report.TopByCount)),
		divider,
	}

	if report.Insights != nil && len(report.Insights.Insights) > 0 {
		elements = append(elements, markdown("**✨ AI 选题洞察**\n\n"+insightList(report.Insights.Insights)), divider)
	}

	if report.Insights != nil && len(report.Insights.RecommendedTopics) > 0 {
		elements = append(elements, markdown("**🎯 推荐选题方向**\n\n"+topicList(report.Insights.RecommendedTopics)), divider)
	}

	elements = append(elements, feishuElement{
		Tag: "note",
		Elements: []feishuText{{
			Tag:     "plain_text",
			Content: fmt.Sprintf("💡 本报告由 AI 智能分析生成，数据来源于最近%d天热门内容", periodDays),
		}},
	})

	if report.ReportURL != "" {
		elements = append(elements, divider, feishuElement{
			Tag: "action",
			Actions: []feishuButton{{
				Tag:  "button",
				Text: feishuText{Tag: "plain_text", Content: "📊 查看完整报告"},
				Type: "primary",
				URL:  report.ReportURL,
			}},
		})
	}

	return feishuCardMessage{
		MsgType: "interactive",
		Card: feishuCard{
			Header: feishuHeader{
				Title:    feishuText{Tag: "plain_text", Content: fmt.Sprintf("%s %s选题分析日报 - %s", platformIcon(report.Platform), name, report.Keyword)},
				Template: platformTheme(report.Platform),
			},
			Elements: elements,
		},
	}
}

func topList(items []models.RankedItem) string {
	if len(items) > cardListLimit {
		items = items[:cardListLimit]
	}
	lines := make([]string, len(items))
	for i, item := range items {
		title := item.Title
		if item.URL != "" {
			title = fmt.Sprintf("[%s](%s)", item.Title, item.URL)
		}
		lines[i] = fmt.Sprintf("**%d. %s**\n   👍 %s | 👀 %s | 📊 %s",
			i+1, title, formatCount(item.Likes), formatCount(item.Reads), item.Engagement)
	}
	return strings.Join(lines, "\n\n")
}

func insightList(insights []models.Insight) string {
	if len(insights) > cardListLimit {
		insights = insights[:cardListLimit]
	}
	lines := make([]string, len(insights))
	for i, in := range insights {
		lines[i] = fmt.Sprintf("**%d. %s %s**\n%s", i+1, trendIcon(in.Trend), in.Title, in.Description)
	}
	return strings.Join(lines, "\n\n")
}

func topicList(topics []string) string {
	if len(topics) > cardListLimit {
		topics = topics[:cardListLimit]
	}
	lines := make([]string, len(topics))
	for i, topic := range topics {
		lines[i] = fmt.Sprintf("%d. %s", i+1, topic)
	}
	return strings.Join(lines, "\n")
}
