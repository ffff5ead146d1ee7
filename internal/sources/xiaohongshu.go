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

const (
	xiaohongshuNoteURL = "https://www.xiaohongshu.com/explore/%s"
	untitledNote       = "无标题"
)

// XiaohongshuSource searches notes through the dajiala xhs API
type XiaohongshuSource struct {
	client  *resty.Client
	apiURL  string
	apiKey  string
	limiter *rate.Limiter
}

type xiaohongshuSearchRequest struct {
	Key       string `json:"key"`
	Type      int    `json:"type"`
	Keyword   string `json:"keyword"`
	Page      int    `json:"page"`
	Sort      string `json:"sort"`
	NoteType  string `json:"note_type"`
	NoteTime  string `json:"note_time"`
	NoteRange string `json:"note_range"`
	Proxy     string `json:"proxy"`
}

type xiaohongshuSearchResponse struct {
	Code        int               `json:"code"`
	Msg         string            `json:"msg"`
	HasMore     bool              `json:"has_more"`
	Items       []xiaohongshuItem `json:"items"`
	RemainMoney float64           `json:"remain_money"`
}

type xiaohongshuItem struct {
	ID        string           `json:"id"`
	ModelType string           `json:"model_type"`
	XsecToken string           `json:"xsec_token"`
	NoteCard  *xiaohongshuCard `json:"note_card"`
}

type xiaohongshuCard struct {
	DisplayTitle string `json:"display_title"`
	Desc         string `json:"desc"`
	Type         string `json:"type"`
	User         struct {
		Nickname string `json:"nickname"`
		NickName string `json:"nick_name"`
	} `json:"user"`
	InteractInfo struct {
		LikedCount     flexCount `json:"liked_count"`
		CollectedCount flexCount `json:"collected_count"`
		CommentCount   flexCount `json:"comment_count"`
		SharedCount    flexCount `json:"shared_count"`
	} `json:"interact_info"`
}

// NewXiaohongshuSource creates a new Xiaohongshu note source
func NewXiaohongshuSource(apiURL, apiKey string, limiter *rate.Limiter) *XiaohongshuSource {
	return &XiaohongshuSource{
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("Content-Type", "application/json"),
		apiURL:  apiURL,
		apiKey:  apiKey,
		limiter: limiter,
	}
}

func (x *XiaohongshuSource) GetName() string {
	return "xiaohongshu"
}

func (x *XiaohongshuSource) Platform() models.Platform {
	return models.PlatformXiaohongshu
}

func (x *XiaohongshuSource) IsEnabled() bool {
	return x.apiKey != "" && x.apiURL != ""
}

func (x *XiaohongshuSource) Search(ctx context.Context, keyword string) ([]models.ContentItem, error) {
	if x.limiter != nil {
		if err := x.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var result xiaohongshuSearchResponse
	resp, err := x.client.R().
		SetContext(ctx).
		SetBody(xiaohongshuSearchRequest{
			Key:       x.apiKey,
			Type:      1,
			Keyword:   keyword,
			Page:      1,
			Sort:      "general",
			NoteType:  "image",
			NoteTime:  "不限",
			NoteRange: "不限",
		}).
		SetResult(&result).
		Post(x.apiURL)

	if err != nil {
		return nil, fmt.Errorf("xiaohongshu search request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("xiaohongshu search API returned status %d", resp.StatusCode())
	}

	if result.Code != 0 {
		return nil, fmt.Errorf("xiaohongshu search API returned code %d: %s", result.Code, result.Msg)
	}

	items := make([]models.ContentItem, 0, len(result.Items))
	for _, item := range result.Items {
		// Ads and recommendation modules come without a note card
		if item.NoteCard == nil {
			continue
		}
		card := item.NoteCard

		title := card.DisplayTitle
		if title == "" {
			title = untitledNote
		}
		author := card.User.Nickname
		if author == "" {
			author = card.User.NickName
		}
		content := card.Desc
		if content == "" {
			content = card.DisplayTitle
		}

		items = append(items, models.ContentItem{
			ID:       item.ID,
			Title:    title,
			URL:      fmt.Sprintf(xiaohongshuNoteURL, item.ID),
			Content:  content,
			Author:   author,
			Likes:    int64(card.InteractInfo.LikedCount),
			Collects: int64(card.InteractInfo.CollectedCount),
			Comments: int64(card.InteractInfo.CommentCount),
			Shares:   int64(card.InteractInfo.SharedCount),
		})
	}

	logrus.WithFields(logrus.Fields{
		"keyword":      keyword,
		"items":        len(items),
		"dropped":      len(result.Items) - len(items),
		"remain_money": result.RemainMoney,
	}).Debug("Xiaohongshu search completed")

	return items, nil
}
