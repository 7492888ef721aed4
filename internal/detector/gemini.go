package detector

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// contentGenerator is the slice of *genai.Models the detector uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model directly.
type Gemini struct {
	gen     contentGenerator
	model   string
	scale   float64
	timeout time.Duration
	prompt  string
	logger  *zap.Logger
}

// NewGemini creates a Gemini API client. An empty apiKey lets the SDK read
// GEMINI_API_KEY or GOOGLE_API_KEY from the environment.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, scale float64, logger *zap.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGemini(client.Models, model, timeout, scale, logger), nil
}

func newGemini(gen contentGenerator, model string, timeout time.Duration, scale float64, logger *zap.Logger) *Gemini {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{
		gen:     gen,
		model:   model,
		scale:   scale,
		timeout: timeout,
		prompt:  DefaultPrompt,
		logger:  logger.With(zap.String("component", "detector"), zap.String("backend", "gemini")),
	}
}

// Analyze sends the screenshot and prompt in one user turn and parses the
// JSON answer.
func (g *Gemini) Analyze(ctx context.Context, img image.Image) (*Analysis, error) {
	data, err := encodePNG(img, g.scale)
	if err != nil {
		return nil, err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, "image/png"),
			genai.NewPartFromText(g.prompt),
		}, genai.RoleUser),
	}
	resp, err := g.gen.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini detector: %w", err)
	}
	text := resp.Text()
	g.logger.Debug("Model response", zap.String("model", g.model), zap.String("text", text))

	regions, err := ParseRegions(text)
	if err != nil {
		return nil, fmt.Errorf("gemini detector: %w", err)
	}
	return Split(regions), nil
}
