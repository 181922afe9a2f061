// Package chat runs the per-request pipeline: classify the message, build an
// intent-specific prompt (with retrieval and/or a deterministic clock fact),
// call the generator, and fall back to the canned-reply bank on any failure.
// The one guarantee it makes is that Respond always yields a non-empty reply
// — upstream outages degrade the answer, never the endpoint.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/igame-lab/assistant/classifier"
	"github.com/igame-lab/assistant/clock"
	"github.com/igame-lab/assistant/generator"
	"github.com/igame-lab/assistant/memory"
	"github.com/igame-lab/assistant/internal/service/session"
)

const (
	defaultTimeout        = 20 * time.Second
	defaultRetrievalLimit = 5

	labPersona = `你是iGame Lab（智能可视化与仿真实验室）的AI助手。你是实验室的官方代表，负责回答关于实验室的所有问题。

实验室简介：
- 实验室全称：智能可视建模与仿真实验室 (Intelligent Visual Modeling & Simulation Lab, iGame)
- 所属单位：杭州电子科技大学计算机学院图形图像所
- 负责人：徐岗教授
- 团队规模：6名教师（1名教授，3名副教授，2名讲师），40多名研究生，3名博士研究生

主要研究方向：
- 计算机辅助设计与仿真
- 等几何分析
- 计算机视觉
- 机器学习`
)

type handlerFunc func(ctx context.Context, message string) (string, error)

type Service struct {
	classifier     classifier.Classifier
	generator      generator.Generator
	store          memory.Store
	sessions       *session.Service
	bank           *Bank
	clock          clock.Clock
	timezone       string
	timeout        time.Duration
	retrievalLimit int
	handlers       map[classifier.Intent]handlerFunc
}

// Respond processes one inbound message and returns the reply plus the
// session id it was recorded under. It never returns an error: every
// upstream failure routes to the fallback bank.
func (s *Service) Respond(ctx context.Context, sessionId string, message string) (string, string) {
	sess := s.sessions.GetOrCreate(ctx, sessionId)
	s.sessions.Append(ctx, sess.Id, session.RoleUser, message)

	result := s.classify(ctx, message)

	handler, ok := s.handlers[result.Intent]
	if !ok {
		handler = s.handleGeneral
	}

	reply, err := handler(ctx, message)
	if err != nil || len(strings.TrimSpace(reply)) == 0 {
		slog.WarnContext(ctx, "generation pipeline degraded, using fallback bank",
			"intent", result.Intent,
			"error", err,
		)
		reply = s.bank.Reply(message)
	}

	s.sessions.Append(ctx, sess.Id, session.RoleAssistant, reply)

	return reply, sess.Id
}

func (s *Service) classify(ctx context.Context, message string) classifier.Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.classifier.Classify(ctx, message)
}

func (s *Service) handleTimeQuery(ctx context.Context, message string) (string, error) {
	// Ground truth comes from the local clock; the generator only phrases it.
	fact := clock.Describe(s.clock, s.timezone, clock.FormatFull)

	prompt := fmt.Sprintf(`%s

用户的问题是：%s

请基于上述准确时间信息，用自然语言回答用户的问题。`, fact.Sentence(), message)

	return s.generate(ctx, prompt)
}

func (s *Service) handleHistoricalTimeQuery(ctx context.Context, message string) (string, error) {
	fact := clock.Describe(s.clock, s.timezone, clock.FormatFull)

	docs, err := s.search(ctx, message)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	contextBlock := buildContext(docs)
	if len(contextBlock) == 0 {
		contextBlock = "没有找到相关记忆信息。"
	} else {
		contextBlock = "相关记忆信息：\n" + contextBlock
	}

	prompt := fmt.Sprintf(`%s

用户的问题涉及历史事件或过去的时间。请基于以下相关记忆信息来回答：

%s

用户的问题：%s

请基于上述信息回答用户的问题。如果记忆信息中没有相关内容，请说明没有找到相关信息。`, fact.Sentence(), contextBlock, message)

	return s.generate(ctx, prompt)
}

func (s *Service) handleLabRelated(ctx context.Context, message string) (string, error) {
	docs, err := s.search(ctx, message)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	prompt := labPersona
	if contextBlock := buildContext(docs); len(contextBlock) > 0 {
		prompt += "\n\n相关信息：\n" + contextBlock
	}
	prompt += `

请基于以上信息回答用户的问题。如果你不知道确切信息，请诚实地说明。保持友好、专业和有帮助的态度。

用户的问题：` + message

	return s.generate(ctx, prompt)
}

func (s *Service) handleGeneral(ctx context.Context, message string) (string, error) {
	prompt := fmt.Sprintf(`你是一个友好的AI助手，可以回答各种问题。请保持专业、准确和有帮助的态度。

请回答用户的问题。你是iGame Lab的AI助手，但这个问题似乎不是关于实验室的具体信息，请直接回答。

用户问题：%s`, message)

	return s.generate(ctx, prompt)
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.generator.Generate(ctx, prompt)
}

func (s *Service) search(ctx context.Context, query string) ([]memory.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.SearchRelevant(ctx, query, s.retrievalLimit)
}

func buildContext(docs []memory.Document) string {
	if len(docs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		title := doc.Title
		if len(title) == 0 {
			title = "相关信息"
		}
		parts = append(parts, fmt.Sprintf("[%s]: %s", title, doc.Content))
	}

	return strings.Join(parts, "\n\n")
}

type ServiceOption func(*Service)

func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.timeout = timeout
	}
}

func WithRetrievalLimit(limit int) ServiceOption {
	return func(s *Service) {
		s.retrievalLimit = limit
	}
}

func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) {
		s.clock = c
		s.bank = NewBank(c, s.timezone)
	}
}

func New(
	cl classifier.Classifier,
	gen generator.Generator,
	store memory.Store,
	sessions *session.Service,
	timezone string,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		classifier:     cl,
		generator:      gen,
		store:          store,
		sessions:       sessions,
		clock:          clock.System(),
		timezone:       timezone,
		timeout:        defaultTimeout,
		retrievalLimit: defaultRetrievalLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.bank == nil {
		s.bank = NewBank(s.clock, s.timezone)
	}

	// Closed dispatch: the intent set is an enum, so an unknown intent can
	// only mean a bug upstream and falls through to the general handler.
	s.handlers = map[classifier.Intent]handlerFunc{
		classifier.IntentTimeQuery:           s.handleTimeQuery,
		classifier.IntentHistoricalTimeQuery: s.handleHistoricalTimeQuery,
		classifier.IntentLabRelated:          s.handleLabRelated,
		classifier.IntentGeneral:             s.handleGeneral,
	}

	return s
}
