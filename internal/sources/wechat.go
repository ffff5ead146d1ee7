package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/content-factory/topic-monitor/internal/models"
)

// WeChatSource searches official-account articles through the dajiala keyword API
type WeChatSource struct {
	client  *resty.Client
	apiURL  string
	apiKey  string
	period  int
	limiter *rate.Limiter
}

type wechatSearchRequest struct {
	Keyword    string `json:"kw"`
	SortType   int    `json:"sort_type"`
	Mode       int    `json:"mode"`
	Period     int    `json:"period"`
	Page       int    `json:"page"`
	Key        string `json:"key"`
	AnyKeyword string `json:"any_kw"`
	ExKeyword  string `json:"ex_kw"`
	VerifyCode string `json:"verifycode"`
	Type       int    `json:"type"`
}

type wechatSearchResponse struct {
	Code        int             `json:"code"`
	Msg         string          `json:"msg"`
	Data        []wechatArticle `json:"data"`
	Total       int             `json:"total"`
	RemainMoney float64         `json:"remain_money"`
}

type wechatArticle struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	ShortLink string    `json:"short_link"`
	WxName    string    `json:"wx_name"`
	GhID      string    `json:"ghid"`
	Praise    flexCount `json:"praise"`
	Read      flexCount `json:"read"`
	Looking   flexCount `json:"looking"`
}

// NewWeChatSource creates a new WeChat article source
func NewWeChatSource(apiURL, apiKey string, periodDays int, limiter *rate.Limiter) *WeChatSource {
	return &WeChatSource{
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("Content-Type", "application/json"),
		apiURL:  apiURL,
		apiKey:  apiKey,
		period:  periodDays,
		limiter: limiter,
	}
}

func (w *WeChatSource) GetName() string {
	return "wechat"
}

func (w *WeChatSource) Platform() models.Platform {
	return models.PlatformWeChat
}

func (w *WeChatSource) IsEnabled() bool {
	return w.apiKey != "" && w.apiURL != ""
}

func (w *WeChatSource) Search(ctx context.Context, keyword string) ([]models.ContentItem, error) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var result wechatSearchResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(wechatSearchRequest{
			Keyword:  keyword,
			SortType: 1,
			Mode:     1,
			Period:   w.period,
			Page:     1,
			Key:      w.apiKey,
			Type:     1,
		}).
		SetResult(&result).
		Post(w.apiURL)

	if err != nil {
		return nil, fmt.Errorf("wechat search request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("wechat search API returned status %d", resp.StatusCode())
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("wechat search API returned code %d: %s", result.Code, result.Msg)
	}

	items := make([]models.ContentItem, 0, len(result.Data))
	for _, article := range result.Data {
		url := article.URL
		if url == "" {
			url = article.ShortLink
		}
		items = append(items, models.ContentItem{
			ID:      url,
			Title:   article.Title,
			URL:     url,
			Content: article.Content,
			Author:  article.WxName,
			Likes:   int64(article.Praise),
			Reads:   int64(article.Read),
			Shares:  int64(article.Looking),
		})
	}

	logrus.WithFields(logrus.Fields{
		"keyword":      keyword,
		"items":        len(items),
		"remain_money": result.RemainMoney,
	}).Debug("WeChat search completed")

	return items, nil
}
