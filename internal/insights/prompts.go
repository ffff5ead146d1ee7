package insights

import (
	"fmt"
	"strings"

	"github.com/content-factory/topic-monitor/internal/models"
)

const summarySystemPrompt = "你是一位专业的内容分析师，擅长提取文章的核心信息和价值点。请始终以 JSON 格式返回结构化的分析结果。"

const insightSystemPrompt = "你是一位资深的内容策略专家，擅长从大量内容中提炼出有价值的选题洞察和创作建议。请始终以 JSON 格式返回结构化的分析结果。"

func contentNoun(p models.Platform) string {
	if p == models.PlatformXiaohongshu {
		return "小红书笔记"
	}
	return "公众号文章"
}

func summaryPrompt(keyword string, platform models.Platform, items []models.ShortlistItem) string {
	blocks := make([]string, len(items))
	for i, item := range items {
		blocks[i] = fmt.Sprintf("\n【文章 %d】\n标题：%s\n内容：%s\n阅读量：%d\n点赞数：%d\n",
			i+1, item.Title, item.Content, item.Reads, item.Likes)
	}

	return fmt.Sprintf(`你是一位专业的内容分析师。请分析以下 %d 篇关于"%s"的%s。

%s

请对每篇文章进行详细分析，并按输入顺序以 JSON 数组格式返回结果。每个分析对象应包含以下字段：

{
  "articleTitle": "文章标题",
  "summary": "内容摘要（200-300字，概括文章核心内容和主要观点）",
  "keywords": ["关键词1", "关键词2"],
  "highlights": ["亮点1", "亮点2"],
  "targetAudience": "目标受众描述",
  "contentType": "内容类型（如：教程、案例分析、观点评论、工具介绍、行业报告等）"
}

请直接返回 JSON 数组，不要包含任何其他文字说明。`,
		len(items), keyword, contentNoun(platform), strings.Join(blocks, "\n---\n"))
}

func insightPrompt(keyword string, platform models.Platform, summaries []models.ArticleSummary) string {
	blocks := make([]string, len(summaries))
	for i, s := range summaries {
		blocks[i] = fmt.Sprintf("\n【文章 %d】%s\n摘要：%s\n关键词：%s\n亮点：%s\n目标受众：%s\n内容类型：%s\n数据表现：阅读 %d，点赞 %d，互动率 %s\n",
			i+1, s.ArticleTitle, s.Summary,
			strings.Join(s.Keywords, "、"), strings.Join(s.Highlights, "；"),
			s.TargetAudience, s.ContentType,
			s.Metrics.Reads, s.Metrics.Likes, s.Metrics.Engagement)
	}

	return fmt.Sprintf(`你是一位资深的内容策略专家。基于以下 %d 篇关于"%s"的%s摘要，请进行深度的选题洞察分析。

%s

请从以下角度进行分析：
1. 识别内容趋势和热点话题
2. 分析读者关注点和痛点
3. 发现内容差异化机会
4. 提供具体的创作建议

请生成至少 5 条结构化的选题洞察，并以 JSON 格式返回：

{
  "insights": [
    {
      "title": "洞察标题（简洁有力，10-20字）",
      "description": "详细描述（100-200字）",
      "supportingArticles": ["支撑文章的标题"],
      "creativeAdvice": "具体可执行的创作建议（50-100字）",
      "relatedKeywords": ["相关关键词"],
      "trend": "rising 或 stable 或 declining"
    }
  ],
  "overallTrends": ["整体趋势1", "整体趋势2", "整体趋势3"],
  "recommendedTopics": ["推荐选题1", "推荐选题2", "推荐选题3"]
}

请确保 supportingArticles 中的标题来自上述文章列表，直接返回 JSON，不要包含任何其他文字说明。`,
		len(summaries), keyword, contentNoun(platform), strings.Join(blocks, "\n---\n"))
}
