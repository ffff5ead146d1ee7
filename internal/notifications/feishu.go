package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/content-factory/topic-monitor/internal/models"
)

const testMessageText = "✅ 飞书 Webhook 连接测试成功！"

// FeishuClient pushes cards to a Feishu custom-bot webhook
type FeishuClient struct {
	client     *resty.Client
	periodDays int
}

// Ensure FeishuClient implements Dispatcher
var _ Dispatcher = (*FeishuClient)(nil)

type feishuResponse struct {
	Code *int   `json:"code"`
	Msg  string `json:"msg"`
}

// NewFeishuClient creates a webhook client; periodDays is quoted in the card footer
func NewFeishuClient(periodDays int) *FeishuClient {
	return &FeishuClient{
		client:     resty.New().SetTimeout(30 * time.Second),
		periodDays: periodDays,
	}
}

// Push sends the report card
func (f *FeishuClient) Push(ctx context.Context, webhookURL string, report *models.NotificationReport) models.DeliveryResult {
	result := f.post(ctx, webhookURL, buildCard(report, f.periodDays), "飞书推送失败")
	if !result.Success {
		logrus.WithFields(logrus.Fields{
			"keyword":   report.Keyword,
			"report_id": report.ReportID,
			"error":     result.Error,
		}).Error("Failed to push report to Feishu")
	}
	return result
}

// Test sends a plain-text connectivity message
func (f *FeishuClient) Test(ctx context.Context, webhookURL string) models.DeliveryResult {
	var msg feishuTextMessage
	msg.MsgType = "text"
	msg.Content.Text = testMessageText
	return f.post(ctx, webhookURL, msg, "测试失败")
}

// post succeeds only on a 2xx status whose body carries an explicit code 0
func (f *FeishuClient) post(ctx context.Context, webhookURL string, payload any, failurePrefix string) models.DeliveryResult {
	if webhookURL == "" {
		return models.DeliveryResult{Error: "webhook URL is empty"}
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(webhookURL)
	if err != nil {
		return models.DeliveryResult{Error: fmt.Sprintf("failed to send Feishu message: %v", err)}
	}

	var body feishuResponse
	var raw json.RawMessage
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		raw = json.RawMessage(resp.Body())
	}

	if raw == nil {
		return models.DeliveryResult{Error: fmt.Sprintf("%s: %d (unreadable response)", failurePrefix, resp.StatusCode())}
	}

	if !resp.IsSuccess() || body.Code == nil || *body.Code != 0 {
		msg := body.Msg
		if msg == "" {
			msg = fmt.Sprintf("%s: %d", failurePrefix, resp.StatusCode())
		}
		return models.DeliveryResult{Error: msg, Response: raw}
	}

	return models.DeliveryResult{Success: true, Response: raw}
}
