package deepseek

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/igame-lab/assistant/classifier"
	"github.com/igame-lab/assistant/util/getsafe"
)

const systemPrompt = `你是一个意图判断助手。请分析用户的问题，判断其意图类型。

意图类型：
1. "lab_related" - 与iGame实验室相关的问题（成员、研究方向、项目、论文、活动、历史事件等）
2. "time_query" - 询问当前时间、日期的问题
3. "historical_time_query" - 询问过去的历史事件或时间相关问题（如"去年圣诞节发生了什么"）
4. "general" - 其他一般性问题

iGame实验室是智能可视化与仿真实验室，属于杭州电子科技大学计算机学院。主要研究方向包括：计算机辅助设计与仿真、等几何分析、计算机视觉、机器学习。

实验室成员包括：徐岗教授（负责人）、高飞、顾仁树、邬海燕、徐金兰、许佳敏、肖州方、徐钢等老师。

时间查询示例：
- 现在几点了？
- 当前时间是什么？

历史时间查询示例：
- 去年圣诞节发生了什么？
- 许佳敏老师去年做了什么？

实验室相关问题示例：
- 实验室有多少人？
- 徐岗教授的研究方向是什么？

请根据用户问题判断意图类型，只返回JSON格式：
{"intent": "lab_related"} 或 {"intent": "time_query"} 或 {"intent": "historical_time_query"} 或 {"intent": "general"}`

type deepseekClassifier struct {
	options classifier.Options
	client  *openai.Client
}

func (c *deepseekClassifier) Classify(ctx context.Context, message string) classifier.Result {
	result, err := c.detect(ctx, message)
	if err != nil {
		slog.WarnContext(ctx, "intent detection failed, using keyword fallback", "error", err)
		return classifier.Keyword(message)
	}
	return result
}

func (c *deepseekClassifier) detect(ctx context.Context, message string) (classifier.Result, error) {
	req := openai.ChatCompletionRequest{
		Model: c.options.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: message,
			},
		},
		Temperature: 0.1,
		MaxTokens:   100,
	}

	rsp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return classifier.Result{}, err
	}

	if len(rsp.Choices) == 0 {
		return classifier.Result{}, errNoChoices
	}

	var parsed map[string]any

	raw := strings.TrimSpace(rsp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return classifier.Result{}, err
	}

	intent, ok := knownIntents[getsafe.String(parsed, "intent")]
	if !ok {
		return classifier.Result{}, errUnknownIntent
	}

	confidence := getsafe.Float64(parsed, "confidence")
	if confidence == 0 {
		confidence = 0.8
	}

	return classifier.Result{Intent: intent, Confidence: confidence}, nil
}

var knownIntents = map[string]classifier.Intent{
	string(classifier.IntentTimeQuery):           classifier.IntentTimeQuery,
	string(classifier.IntentHistoricalTimeQuery): classifier.IntentHistoricalTimeQuery,
	string(classifier.IntentLabRelated):          classifier.IntentLabRelated,
	string(classifier.IntentGeneral):             classifier.IntentGeneral,
}

func NewClassifier(opts ...classifier.Option) classifier.Classifier {
	options := classifier.NewOptions(opts...)

	cfg := openai.DefaultConfig(options.ApiKey)
	if len(options.Location) > 0 {
		cfg.BaseURL = options.Location
	}

	c := &deepseekClassifier{
		options: options,
		client:  openai.NewClientWithConfig(cfg),
	}

	return c
}
