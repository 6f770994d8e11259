package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/quizgen/internal/config"
	"github.com/phrazzld/quizgen/internal/domain"
	"github.com/phrazzld/quizgen/internal/generation"
	"github.com/phrazzld/quizgen/internal/platform/logger"
	"google.golang.org/genai"
)

// contentGenerator is the subset of *genai.Models the agent calls.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Agent implements generation.Agent using the Gemini API.
type Agent struct {
	models  contentGenerator
	model   string
	maxTry  int
	prompts prompts
	logger  *slog.Logger
}

var _ generation.Agent = (*Agent)(nil)

// NewAgent creates a Gemini client and loads the prompt templates.
func NewAgent(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Agent, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newAgent(client.Models, logger, cfg)
}

func newAgent(models contentGenerator, logger *slog.Logger, cfg config.LLMConfig) (*Agent, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.MaxTry < 1 {
		return nil, fmt.Errorf("%w: max try must be at least 1", generation.ErrInvalidConfig)
	}
	p, err := loadPrompts(cfg)
	if err != nil {
		return nil, err
	}

	return &Agent{
		models:  models,
		model:   cfg.ModelName,
		maxTry:  cfg.MaxTry,
		prompts: p,
		logger:  logger.With("component", "gemini_agent", "model", cfg.ModelName),
	}, nil
}

// MaxTry implements generation.Agent.
func (a *Agent) MaxTry() int {
	return a.maxTry
}

type quizResponse struct {
	Title     string            `json:"title"`
	Questions []domain.Question `json:"questions"`
}

// GenerateQuiz implements generation.Agent.
func (a *Agent) GenerateQuiz(ctx context.Context, contents []json.RawMessage, n int) (*domain.Quiz, error) {
	docs, err := documents(contents)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}
	prompt, err := render(a.prompts.quiz, quizPromptData{QuestionsNumbers: n, Documents: docs})
	if err != nil {
		return nil, err
	}

	var resp quizResponse
	if err := a.generateJSON(ctx, prompt, quizSchema, &resp); err != nil {
		return nil, err
	}

	if len(resp.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions in response", generation.ErrInvalidResponse)
	}
	for i, q := range resp.Questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", generation.ErrInvalidResponse, i, err)
		}
	}
	if len(resp.Questions) != n {
		logger.FromContextOrDefault(ctx, a.logger).Warn("model returned a different number of questions",
			"requested", n,
			"returned", len(resp.Questions))
	}

	return &domain.Quiz{Title: strings.TrimSpace(resp.Title), Questions: resp.Questions}, nil
}

// SafetyContentCheck implements generation.Agent.
func (a *Agent) SafetyContentCheck(ctx context.Context, quiz *domain.Quiz) (*generation.SafetyReport, error) {
	body, err := json.MarshalIndent(quizResponse{Title: quiz.Title, Questions: quiz.Questions}, "", "  ")
	if err != nil {
		return nil, err
	}
	prompt, err := render(a.prompts.safety, safetyPromptData{Quiz: string(body)})
	if err != nil {
		return nil, err
	}

	var report generation.SafetyReport
	if err := a.generateJSON(ctx, prompt, safetySchema, &report); err != nil {
		return nil, err
	}
	if report.EducationalScore < 0 || report.EducationalScore > 100 {
		return nil, fmt.Errorf("%w: educational score %d out of range",
			generation.ErrInvalidResponse, report.EducationalScore)
	}
	return &report, nil
}

// generateJSON sends the prompt and decodes the JSON answer into out.
func (a *Agent) generateJSON(ctx context.Context, prompt string, schema *genai.Schema, out interface{}) error {
	log := logger.FromContextOrDefault(ctx, a.logger)
	log.Debug("calling gemini", "prompt_length", len(prompt))

	resp, err := a.models.GenerateContent(ctx, a.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return fmt.Errorf("gemini request failed: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		log.Debug("unparsable gemini response", "response_length", len(text))
		return fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: response blocked by safety filters", generation.ErrInvalidResponse)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return b.String(), nil
}

var quizSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title": {Type: genai.TypeString},
		"questions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"q": {Type: genai.TypeString},
					"answers": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"a": {Type: genai.TypeString},
								"c": {Type: genai.TypeBoolean},
							},
							Required: []string{"a", "c"},
						},
					},
				},
				Required: []string{"q", "answers"},
			},
		},
	},
	Required: []string{"title", "questions"},
}

var safetySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isOffensive":      {Type: genai.TypeBoolean},
		"educationalScore": {Type: genai.TypeInteger},
	},
	Required: []string{"isOffensive", "educationalScore"},
}
