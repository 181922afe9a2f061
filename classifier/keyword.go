package classifier

import (
	"context"
	"strings"
)

var (
	timeKeywords = []string{
		"几点", "时间", "现在", "今天", "昨天", "明天", "什么时候",
		"what time", "current time",
	}

	historicalKeywords = []string{
		"去年", "前年", "上个月", "以前", "当时", "过去",
		"last year", "ago", "previously",
	}

	labKeywords = []string{
		"实验室", "教授", "徐岗", "高飞", "顾仁树", "邬海燕", "徐金兰",
		"许佳敏", "肖州方", "徐钢", "igame", "智能可视化",
		"计算机辅助设计", "等几何分析", "计算机视觉", "机器学习",
		"研究方向", "团队", "成员", "论文", "项目", "活动", "新闻",
		"杭州电子科技大学",
	}
)

// Keyword is the deterministic offline classifier. It is the fallback for
// every remote failure mode, so repeated calls with the same message must
// yield the same result.
func Keyword(message string) Result {
	lower := strings.ToLower(message)

	hasTime := containsAny(lower, timeKeywords)
	hasHistorical := containsAny(lower, historicalKeywords)
	hasLab := containsAny(lower, labKeywords)

	switch {
	case hasTime && hasHistorical:
		return Result{Intent: IntentHistoricalTimeQuery, Confidence: 0.7}
	case hasTime:
		return Result{Intent: IntentTimeQuery, Confidence: 0.8}
	case hasLab:
		return Result{Intent: IntentLabRelated, Confidence: 0.8}
	default:
		return Result{Intent: IntentGeneral, Confidence: 0.6}
	}
}

type keywordClassifier struct{}

func (c *keywordClassifier) Classify(ctx context.Context, message string) Result {
	return Keyword(message)
}

// NewKeywordClassifier wraps Keyword for deployments with no remote
// classification service configured.
func NewKeywordClassifier() Classifier {
	return &keywordClassifier{}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
