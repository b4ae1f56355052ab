package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/candidate-screener/internal/ai"
	"github.com/spigell/candidate-screener/internal/logger"
	"github.com/spigell/candidate-screener/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength     = 200
	maxUserInstructionRunes = 500
	maxHistoryEntries       = 50
)

// Recommender asks Gemini for rule suggestions.
type Recommender struct {
	generator    contentGenerator
	logger       *zap.Logger
	maxLogLen    int
	instructions string
}

func NewRecommender(generator contentGenerator, logger *zap.Logger, instructions string, maxLogLength int) *Recommender {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Recommender{
		generator:    generator,
		logger:       logger,
		maxLogLen:    maxLogLength,
		instructions: instructions,
	}
}

func (r *Recommender) Recommend(ctx context.Context, position string, history []ai.Calibration) (*ai.Suggestion, error) {
	position = strings.TrimSpace(position)
	if position == "" {
		return nil, errors.New("position is required")
	}

	if len(history) > maxHistoryEntries {
		history = history[len(history)-maxHistoryEntries:]
	}
	if history == nil {
		history = []ai.Calibration{}
	}
	historyJSON, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}

	prompt := buildPrompt(position, string(historyJSON), sanitizeInstructions(r.instructions))
	log := logger.WithCommonFields(r.logger, Provider, r.generator.Model())

	log.Debug("gemini generate content request",
		zap.String("position", position),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	suggestion, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	suggestion.Raw = raw
	return suggestion, nil
}

func buildPrompt(position, historyJSON, instructions string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Position:\n{{POSITION}}\n\nHistory:\n{{HISTORY_JSON}}\n\nNotes:\n{{INSTRUCTIONS}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{POSITION}}", position)
	prompt = strings.ReplaceAll(prompt, "{{HISTORY_JSON}}", historyJSON)
	prompt = strings.ReplaceAll(prompt, "{{INSTRUCTIONS}}", instructions)
	return prompt
}

// sanitizeInstructions flattens operator notes to one line, strips role markers
// and caps the length.
func sanitizeInstructions(raw string) string {
	text := strings.Join(strings.Fields(raw), " ")
	for _, marker := range []string{"[System]", "[system]", "[Assistant]", "[assistant]", "```"} {
		text = strings.ReplaceAll(text, marker, "")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "  - none"
	}
	if runes := []rune(text); len(runes) > maxUserInstructionRunes {
		text = string(runes[:maxUserInstructionRunes])
	}
	return "  - " + text
}

func parseResponse(raw string) (*ai.Suggestion, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	suggestion := &ai.Suggestion{
		Companies:   coerceStrings(data["companies"]),
		Keywords:    coerceStrings(data["keywords"]),
		Explanation: coerceString(data["explanation"]),
	}

	items, _ := data["rules"].([]any)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rule := ai.SuggestedRule{
			Category: coerceString(obj["category"]),
			Keywords: coerceStrings(obj["keywords"]),
		}
		if rule.Category == "" {
			continue
		}
		if v, ok := obj["mustMatch"]; ok && v != nil {
			must := coerceBool(v)
			rule.MustMatch = &must
		}
		if score := coerceFloat(obj["passScore"]); !math.IsNaN(score) {
			pass := int(math.Round(math.Max(0, math.Min(100, score))))
			rule.PassScore = &pass
		}
		suggestion.Rules = append(suggestion.Rules, rule)
	}

	return suggestion, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

// coerceStrings accepts a list or a comma separated string.
func coerceStrings(v any) []string {
	var out []string
	switch val := v.(type) {
	case []any:
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(val, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
