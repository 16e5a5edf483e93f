// Package llm implements the engine's analysis collaborators against any
// OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/peop360/beyonders/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable with a minimal completion.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	if err != nil {
		return fmt.Errorf("LLM ping: %w", err)
	}
	return nil
}

// storyTags mirrors the Narrative Story Tagger response schema.
type storyTags struct {
	Themes          []string `json:"themes"`
	Emotions        []string `json:"emotions"`
	Conflicts       []string `json:"conflicts"`
	ResolutionStyle string   `json:"resolution_style"`
	Tone            string   `json:"tone"`
}

// AnalyzeStory extracts psychological themes, emotions, conflicts and tone
// from a story written against a card.
func (c *Client) AnalyzeStory(ctx context.Context, story string, card model.TATCard) (model.StoryAnalysis, error) {
	raw, err := c.completeJSON(ctx, analyzeSystemPrompt, buildAnalyzeQuery(story, card), 0.7)
	if err != nil {
		return model.StoryAnalysis{}, err
	}

	var tags storyTags
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return model.StoryAnalysis{}, fmt.Errorf("parse analysis response: %w (raw: %s)", err, raw)
	}
	analysis := model.StoryAnalysis{
		Themes:          tags.Themes,
		Emotions:        tags.Emotions,
		Conflicts:       tags.Conflicts,
		ResolutionStyle: tags.ResolutionStyle,
		Tone:            tags.Tone,
	}
	if analysis.Themes == nil {
		analysis.Themes = []string{}
	}
	if analysis.Emotions == nil {
		analysis.Emotions = []string{}
	}
	if analysis.Conflicts == nil {
		analysis.Conflicts = []string{}
	}
	if analysis.ResolutionStyle == "" {
		analysis.ResolutionStyle = "neutral"
	}
	if analysis.Tone == "" {
		analysis.Tone = "neutral"
	}
	return analysis, nil
}

// ScoreNPP scores a story on the ten NPP-30 dimensions, each 0 to 5.
func (c *Client) ScoreNPP(ctx context.Context, story string, card model.TATCard) (model.NPPScores, error) {
	raw, err := c.completeJSON(ctx, nppSystemPrompt, buildNPPQuery(story, card), 0.3)
	if err != nil {
		return nil, err
	}

	var scores model.NPPScores
	if err := json.Unmarshal([]byte(raw), &scores); err != nil {
		return nil, fmt.Errorf("parse NPP response: %w (raw: %s)", err, raw)
	}
	for _, dim := range model.NPPDimensions {
		v, ok := scores[dim]
		if !ok {
			return nil, fmt.Errorf("NPP response missing dimension %q (raw: %s)", dim, raw)
		}
		if v < 0 || v > 5 {
			return nil, fmt.Errorf("NPP dimension %q out of range: %d (raw: %s)", dim, v, raw)
		}
	}
	return scores, nil
}

// Hint generates conceptual guidance for a domain question without
// revealing the answer.
func (c *Client) Hint(ctx context.Context, q model.Question) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: hintSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildHintQuery(q)},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("LLM hint call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) completeJSON(ctx context.Context, system, query string, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return raw, nil
}

const analyzeSystemPrompt = `You are an AI psychologist trained in narrative analysis. Analyze the following story and extract psychological themes using the Narrative Story Tagger schema. Respond only with valid JSON.`

const nppSystemPrompt = `You are an AI psychologist using the NPP-30 (Narrative Psychological Profile) scoring system. Score this story on 10 dimensions from 0-5 where 0=Absent, 1=Very Low, 2=Low, 3=Moderate, 4=High, 5=Very High. Respond only with valid JSON.`

const hintSystemPrompt = `You are a friendly, non-judgmental AI study buddy. Your goal is to gently guide the student toward the correct concept, NOT to give them the direct answer. Respond only with the hint text.`

func buildAnalyzeQuery(story string, card model.TATCard) string {
	var sb strings.Builder
	sb.WriteString("Analyze this story for psychological themes: \"" + story + "\"\n\n")
	sb.WriteString("Image context: " + card.Description + "\n")
	sb.WriteString("Image tags: " + strings.Join(card.Tags, ", ") + "\n\n")
	sb.WriteString("Extract and return JSON in this format:\n")
	sb.WriteString(`{"themes": ["theme1", "theme2"], "emotions": ["emotion1", "emotion2"], "conflicts": ["conflict1", "conflict2"], "resolution_style": "positive/negative/ambiguous", "tone": "hopeful/anxious/reflective/etc"}`)
	sb.WriteString("\n")
	return sb.String()
}

func buildNPPQuery(story string, card model.TATCard) string {
	var sb strings.Builder
	sb.WriteString("Score this story using NPP-30 metrics: \"" + story + "\"\n\n")
	sb.WriteString("Image context: " + card.Description + "\n\n")
	sb.WriteString("Return JSON with scores 0-5 for:\n{")
	for i, dim := range model.NPPDimensions {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(`"` + dim + `": score`)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func buildHintQuery(q model.Question) string {
	return fmt.Sprintf(
		"Provide a subtle, conceptual hint for the following multiple-choice question: %q. The options are: %s. Do not reveal the answer. Keep the hint concise and focused on the core concept.",
		q.Text, strings.Join(q.Options, ", "))
}
