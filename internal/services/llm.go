package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"warmwall/internal/apperr"
	"warmwall/internal/logging"
	"warmwall/internal/metrics"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tidwall/gjson"
)

// 陪伴角色 Echo 的人设
const chatPersona = `你叫 Echo。你不是 AI 助手，也不是心理咨询师，而是一位阅历丰富、温柔而理智的成年知己，说话像老朋友重逢一样自然：
1. 不要客服腔，不说“我理解”“有什么可以帮你”，像真人一样直接接话。
2. 可以有自己的喜好，可以幽默和调侃，但始终保持善意。
3. 不急着给建议，多问开放式问题，引导对方自己理清思绪。
4. 回复简短，分段清晰，像微信聊天。
5. 先接住情绪，再谈事情。
6. 不要开场白，不要以“嗯”“好”或空行开头。除非对方提到，不要假设现在是深夜。`

// 把对话整理成树洞帖子
const summarizePrompt = `你是一位情感敏锐的作家。阅读下面的对话，提炼用户（User）的核心心事与情绪，写成一篇适合发在“树洞”的匿名帖子。
只输出 JSON：
{
  "title": "一句话标题，简短，带点文艺感",
  "content": "第一人称独白，保留情感色彩，去掉对话里的琐碎，200 字以内"
}`

var codeFence = regexp.MustCompile("```json\\n?|```")

// ChatTurn 一条对话
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PostDraft AI 整理出的帖子草稿
type PostDraft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type LLMConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LLMService 转发到兼容 OpenAI 的 chat/completions 接口
type LLMService struct {
	cfg     LLMConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	metrics.AICircuitState.Set(0)
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "ai-upstream",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.AICircuitState.Set(stateValue(to))
		},
	})

	return &LLMService{
		cfg: cfg,
		// 流式响应的时长由调用方 context 控制，这里不设整体超时
		client:  &http.Client{},
		breaker: cb,
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func validateTurns(turns []ChatTurn) error {
	if len(turns) == 0 {
		return apperr.Validation("messages", "is required")
	}
	for _, t := range turns {
		// system 角色由服务端固定注入
		if t.Role != "user" && t.Role != "assistant" {
			return apperr.Validation("messages", "role must be user or assistant")
		}
	}
	return nil
}

// call 发起请求，非 2xx 视为失败并计入熔断
func (s *LLMService) call(ctx context.Context, endpoint string, payload map[string]interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode upstream request: %w", err)
	}

	resp, err := s.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		}
		return resp, nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		metrics.AIUpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
		logging.Warn().Err(err).Str("endpoint", endpoint).Msg("ai upstream call failed")
		return nil, apperr.Upstream("AI service unavailable", err)
	}
	metrics.AIUpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return resp, nil
}

func withSystem(prompt string, turns []ChatTurn) []ChatTurn {
	all := make([]ChatTurn, 0, len(turns)+1)
	all = append(all, ChatTurn{Role: "system", Content: prompt})
	return append(all, turns...)
}

// ChatStream 返回上游 SSE 响应体，调用方负责原样转发并关闭
func (s *LLMService) ChatStream(ctx context.Context, turns []ChatTurn) (io.ReadCloser, error) {
	if err := validateTurns(turns); err != nil {
		return nil, err
	}
	resp, err := s.call(ctx, "chat", map[string]interface{}{
		"model":    s.cfg.Model,
		"messages": withSystem(chatPersona, turns),
		"stream":   true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Summarize turns a chat history into a titled first-person post draft.
func (s *LLMService) Summarize(ctx context.Context, turns []ChatTurn) (*PostDraft, error) {
	if err := validateTurns(turns); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.call(ctx, "summarize", map[string]interface{}{
		"model":           s.cfg.Model,
		"messages":        withSystem(summarizePrompt, turns),
		"stream":          false,
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	return parseDraft(raw)
}

func parseDraft(raw []byte) (*PostDraft, error) {
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return nil, errors.New("upstream response has no message content")
	}

	text := strings.TrimSpace(codeFence.ReplaceAllString(content.String(), ""))
	var draft PostDraft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return nil, fmt.Errorf("parse summary json: %w", err)
	}
	return &draft, nil
}
