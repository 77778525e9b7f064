package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Role constants for chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat-completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatResponse is a chat-completion reply.
type ChatResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`
}

// Provider is the minimal chat-completion surface an Agent needs. Concrete
// implementations wrap an LLM vendor SDK or HTTP API.
type Provider interface {
	Name() string
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Config describes an agent persona: the role/goal/backstory triple becomes
// the system prompt, Model selects the provider-side model.
type Config struct {
	Role      string   `json:"role" yaml:"role"`
	Goal      string   `json:"goal,omitempty" yaml:"goal,omitempty"`
	Backstory string   `json:"backstory,omitempty" yaml:"backstory,omitempty"`
	Model     string   `json:"llm,omitempty" yaml:"llm,omitempty"`
	Tools     []string `json:"tools,omitempty" yaml:"tools,omitempty"`

	Temperature float32 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// Agent is the chat executor collaborator handed to the workflow engine: it
// renders its persona into a system prompt and forwards each step's action as
// the user message.
type Agent struct {
	cfg      Config
	provider Provider
	logger   *zap.Logger
}

// New creates an agent over the given provider.
func New(cfg Config, provider Provider, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		cfg:      cfg,
		provider: provider,
		logger:   logger.With(zap.String("component", "agent"), zap.String("role", cfg.Role)),
	}
}

// Chat sends one prompt to the provider and returns the reply text.
func (a *Agent) Chat(ctx context.Context, prompt string) (string, error) {
	req := &ChatRequest{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		Messages: []Message{
			{Role: RoleSystem, Content: a.systemPrompt()},
			{Role: RoleUser, Content: prompt},
		},
	}

	resp, err := a.provider.Completion(ctx, req)
	if err != nil {
		a.logger.Warn("completion failed", zap.Error(err))
		return "", fmt.Errorf("agent %q: completion failed: %w", a.cfg.Role, err)
	}
	return resp.Content, nil
}

// systemPrompt assembles the persona. Empty fields are skipped so a bare role
// still yields a usable prompt.
func (a *Agent) systemPrompt() string {
	var b strings.Builder
	if a.cfg.Role != "" {
		fmt.Fprintf(&b, "You are %s.", a.cfg.Role)
	}
	if a.cfg.Goal != "" {
		fmt.Fprintf(&b, "\nYour goal: %s", a.cfg.Goal)
	}
	if a.cfg.Backstory != "" {
		fmt.Fprintf(&b, "\nBackstory: %s", a.cfg.Backstory)
	}
	if len(a.cfg.Tools) > 0 {
		fmt.Fprintf(&b, "\nAvailable tools: %s", strings.Join(a.cfg.Tools, ", "))
	}
	return b.String()
}
