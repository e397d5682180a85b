package enrich

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// ── AI 生日祝福生成 ──────────────────────────────────────────
//
// 职责：调用 Anthropic API，为单条生日记录生成个性化祝福语
// 与恰好五条礼物建议。
//
// 失败语义：任何故障（超时、鉴权失败、响应格式异常）返回 error，
// 由调用方决定降级策略；本包不做重试。
// ─────────────────────────────────────────────────────────────

const (
	// maxGifts 礼物建议条数上限（摘要格式约定恰好五条）
	maxGifts = 5

	// responseMaxTokens 限制模型响应长度
	responseMaxTokens = 500
)

var (
	ErrNoAPIKey      = errors.New("未配置 Anthropic API Key")
	ErrEmptyResponse = errors.New("模型未返回有效内容")
)

// Suggestions AI 生成的祝福内容
type Suggestions struct {
	Message string   // 个性化祝福语（一段）
	Gifts   []string // 礼物建议，至多 5 条
}

// Request 单条记录的生成请求
type Request struct {
	APIKey string
	Name   string
	Age    *int   // 当年将满的年龄；无出生年份时为 nil
	Note   string // 备注，缺省为空串
}

// Provider 祝福生成器接口（提醒管道依赖此抽象，便于测试替换）
type Provider interface {
	Enrich(ctx context.Context, req Request) (*Suggestions, error)
}

// AnthropicProvider 基于 Anthropic Messages API 的 Provider 实现
type AnthropicProvider struct {
	model  string
	logger *zap.Logger
}

// NewAnthropicProvider 创建 AnthropicProvider
func NewAnthropicProvider(model string, logger *zap.Logger) *AnthropicProvider {
	return &AnthropicProvider{model: model, logger: logger}
}

// Enrich 为单条记录生成祝福语与礼物建议
// 调用方应通过 ctx 施加单次调用超时
func (p *AnthropicProvider) Enrich(ctx context.Context, req Request) (*Suggestions, error) {
	if req.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	client := anthropic.NewClient(option.WithAPIKey(req.APIKey))

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: responseMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(req))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("生成祝福内容失败: %w", err)
	}

	var raw string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			raw = resp.Content[i].Text
			break
		}
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyResponse
	}

	suggestions, err := ParseSuggestions(raw)
	if err != nil {
		p.logger.Warn("模型响应格式异常", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}
	return suggestions, nil
}

// buildPrompt 构造生成提示词
func buildPrompt(req Request) string {
	contextParts := []string{fmt.Sprintf("Person's name: %s", req.Name)}
	if req.Age != nil {
		contextParts = append(contextParts, fmt.Sprintf("Turning %d years old", *req.Age))
	}
	if req.Note != "" {
		contextParts = append(contextParts, fmt.Sprintf("Additional info: %s", req.Note))
	}

	return fmt.Sprintf(`Given the following information about someone celebrating a birthday:
%s

Please provide:
1. A warm, personalized birthday congratulations message (1 paragraph, 2-3 sentences)
2. 5 thoughtful gift suggestions appropriate for their age and context

Format your response exactly as:
MESSAGE: [your congratulations message here]

GIFTS:
1. [Gift idea 1]
2. [Gift idea 2]
3. [Gift idea 3]
4. [Gift idea 4]
5. [Gift idea 5]

Keep the tone warm and friendly. Consider cultural appropriateness and age-appropriateness.`,
		strings.Join(contextParts, ". "))
}

// ── 响应解析 ──

var (
	messageRe  = regexp.MustCompile(`(?s)MESSAGE:\s*(.+?)\s*GIFTS:`)
	giftItemRe = regexp.MustCompile(`^(?:\d+\.\s*|-\s*)(.+)$`)
)

// ParseSuggestions 解析模型按约定格式返回的文本
// 容忍编号列表与短横线列表，礼物条数截断至 5
func ParseSuggestions(raw string) (*Suggestions, error) {
	m := messageRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, fmt.Errorf("响应缺少 MESSAGE/GIFTS 段落")
	}
	message := strings.TrimSpace(m[1])

	idx := strings.Index(raw, "GIFTS:")
	giftsText := raw[idx+len("GIFTS:"):]

	var gifts []string
	for _, line := range strings.Split(giftsText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if g := giftItemRe.FindStringSubmatch(line); g != nil {
			gifts = append(gifts, strings.TrimSpace(g[1]))
		}
		if len(gifts) == maxGifts {
			break
		}
	}

	if message == "" && len(gifts) == 0 {
		return nil, fmt.Errorf("响应不包含可用内容")
	}

	return &Suggestions{Message: message, Gifts: gifts}, nil
}
