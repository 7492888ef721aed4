package detector

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	deadline bool
	text     string
	err      error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func TestGemini_Analyze(t *testing.T) {
	gen := &fakeGenerator{text: `[{"category":"clickable","type":"button","bbox":[10,10,90,90]},{"type":"carousel","bbox":[0,0,1000,300]}]`}
	g := newGemini(gen, "gemini-2.5-flash", time.Minute, 0.5, nil)

	a, err := g.Analyze(context.Background(), image.NewRGBA(image.Rect(0, 0, 20, 20)))
	require.NoError(t, err)
	assert.Len(t, a.Clickable, 1)
	assert.Len(t, a.Slidable, 1)

	assert.Equal(t, "gemini-2.5-flash", gen.model)
	assert.True(t, gen.deadline, "timeout should bound the call")
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)
	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Equal(t, DefaultPrompt, parts[1].Text)
	assert.Equal(t, "user", gen.contents[0].Role)
}

func TestGemini_Error(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	_, err := newGemini(gen, "m", 0, 0.5, nil).Analyze(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.False(t, gen.deadline)
}
