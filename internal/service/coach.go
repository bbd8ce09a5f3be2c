package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/pausely/pause-server-go/internal/errors"
	"github.com/pausely/pause-server-go/internal/model"
)

const coachSystemPrompt = `You are a compassionate, empathetic coach helping adults manage impulsive behaviors. Your role is to:

1. Be non-judgmental and supportive
2. Focus on delay, not abstinence - help users wait through the urge
3. Use calm, reassuring language
4. Ask reflective questions to help users understand their triggers
5. Keep responses short and mobile-friendly (2-3 sentences max)
6. Encourage self-compassion and progress, not perfection
7. Help users recognize their strength in seeking help

Remember: The goal is to help the user delay acting on their impulse, not to shame them. Be warm, understanding, and empowering.`

const (
	replyMaxTokens   = 150
	summaryMaxTokens = 200
	coachTemperature = 0.7

	fallbackReply   = "I'm here to support you through this moment."
	fallbackSummary = "Session completed."
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CoachClient is the text-generation collaborator. Both operations are
// best-effort from the session engine's point of view: a failure is logged
// by the caller and never blocks a session operation.
type CoachClient interface {
	GenerateReply(ctx context.Context, userMessage string, history []model.SessionMessage, impulseType string) (string, error)
	GenerateSummary(ctx context.Context, history []model.SessionMessage) (string, error)
}

// OpenAICoach talks to an OpenAI-compatible chat completions endpoint.
type OpenAICoach struct {
	client *http.Client
	apiURL string
	apiKey string
	model  string
}

func NewOpenAICoach(apiURL, apiKey, model string, timeout time.Duration) *OpenAICoach {
	return &OpenAICoach{
		client: &http.Client{Timeout: timeout},
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
	}
}

func (c *OpenAICoach) GenerateReply(ctx context.Context, userMessage string, history []model.SessionMessage, impulseType string) (string, error) {
	messages := make([]ChatMessage, 0, len(history)+3)
	messages = append(messages,
		ChatMessage{Role: "system", Content: coachSystemPrompt},
		ChatMessage{Role: "system", Content: fmt.Sprintf("The user is working on managing their impulse related to: %s.", impulseType)},
	)
	for _, msg := range history {
		messages = append(messages, ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: userMessage})

	reply, err := c.complete(ctx, messages, replyMaxTokens)
	if err != nil {
		return "", err
	}
	if reply == "" {
		return fallbackReply, nil
	}
	return reply, nil
}

func (c *OpenAICoach) GenerateSummary(ctx context.Context, history []model.SessionMessage) (string, error) {
	var conversation strings.Builder
	for _, msg := range history {
		speaker := "User"
		if msg.Role == model.RoleAssistant {
			speaker = "Coach"
		}
		fmt.Fprintf(&conversation, "%s: %s\n", speaker, msg.Content)
	}

	prompt := fmt.Sprintf(`Summarize this coaching session in 2-3 sentences. Focus on what the user was struggling with, key insights discussed, and offer words of encouragement. Keep it brief and supportive.

Conversation:
%s`, conversation.String())

	messages := []ChatMessage{
		{Role: "system", Content: coachSystemPrompt},
		{Role: "user", Content: prompt},
	}

	summary, err := c.complete(ctx, messages, summaryMaxTokens)
	if err != nil {
		return "", err
	}
	if summary == "" {
		return fallbackSummary, nil
	}
	return summary, nil
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAICoach) complete(ctx context.Context, messages []ChatMessage, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", apperrors.External("coach", fmt.Errorf("no API key configured"))
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: coachTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Warn().Err(err).Dur("elapsed", elapsed).Msg("coach request failed")
		return "", apperrors.External("coach", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("coach request rejected")
		return "", apperrors.External("coach", fmt.Errorf("status %d", resp.StatusCode))
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.External("coach", fmt.Errorf("decode response: %w", err))
	}

	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
