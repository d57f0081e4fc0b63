package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/story"
	"github.com/kailas-cloud/storydex/internal/retry"
)

// MaxSuggestions caps how many alternative questions Suggest returns.
const MaxSuggestions = 3

const (
	answerInstruction = "Answer the visitor's question using only the portfolio stories provided. " +
		"Refer to stories by title. If the stories do not answer the question, say so."
	suggestInstruction = "The visitor's question did not match any portfolio story. " +
		"Propose up to three short alternative questions about the portfolio. " +
		"Reply with a JSON array of strings."
)

// GeneratorConfig holds the chat-completion provider settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Policy      retry.Policy
	Logger      *zap.Logger
}

// Generator produces grounded answers and alternative questions through an
// OpenAI-compatible /chat/completions endpoint.
type Generator struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	policy      retry.Policy
	logger      *zap.Logger
}

// NewGenerator creates a chat-completion client.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		policy:      cfg.Policy,
		logger:      cfg.Logger,
	}
}

// Generate answers query from stories. Errors wrap domain.ErrGeneratorUnavailable.
func (g *Generator) Generate(ctx context.Context, query string, stories []*story.Story) (string, error) {
	text, err := g.complete(ctx, answerInstruction, query+"\n\n"+renderStories(stories))
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("empty completion: %w", domain.ErrGeneratorUnavailable)
	}
	return text, nil
}

// Suggest asks for alternative questions. Unparseable or blank entries are skipped.
func (g *Generator) Suggest(ctx context.Context, query string) ([]string, error) {
	text, err := g.complete(ctx, suggestInstruction, query)
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(text), nil
}

func (g *Generator) complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	resp, err := retry.Do(ctx, g.policy, func(actx context.Context) (openai.ChatCompletionResponse, error) {
		r, err := g.client.CreateChatCompletion(actx, req)
		if err != nil && !retryable(err) {
			return r, retry.Permanent(err)
		}
		return r, err
	}, func(err error, wait time.Duration) {
		g.logger.Warn("completion attempt failed, retrying",
			zap.String("model", g.model), zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		return "", describe("completion", err, domain.ErrGeneratorUnavailable)
	}

	domain.UsageFromContext(ctx).AddGenerator(resp.Usage.TotalTokens)

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// renderStories formats stories as numbered context blocks.
func renderStories(stories []*story.Story) string {
	var b strings.Builder
	for i, s := range stories {
		fmt.Fprintf(&b, "[%d] %s", i+1, s.Title)
		if s.Client != "" {
			fmt.Fprintf(&b, " (%s)", s.Client)
		}
		b.WriteByte('\n')
		writeLine(&b, "Role", s.Role)
		writeLine(&b, "Summary", s.Summary)
		writeLine(&b, "Situation", strings.Join(s.Situation, " "))
		writeLine(&b, "Task", strings.Join(s.Task, " "))
		writeLine(&b, "Action", strings.Join(s.Action, " "))
		writeLine(&b, "Result", strings.Join(s.Result, " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func writeLine(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

// ParseSuggestions reads a JSON array of strings, else one suggestion per line.
// List markers and surrounding quotes are stripped; at most MaxSuggestions are kept.
func ParseSuggestions(text string) []string {
	text = stripFence(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	var items []string
	var arr []any
	if json.Unmarshal([]byte(text), &arr) == nil {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				items = append(items, s)
			}
		}
	} else {
		items = strings.Split(text, "\n")
	}

	out := make([]string, 0, MaxSuggestions)
	for _, item := range items {
		s := cleanSuggestion(item)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

func cleanSuggestion(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*• ")
	// numbered list markers: "1." or "2)"
	if i := strings.IndexAny(s, ".)"); i > 0 && i <= 2 && isDigits(s[:i]) {
		s = s[i+1:]
	}
	s = strings.Trim(strings.TrimSpace(s), "\"'[],")
	return strings.TrimSpace(s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
