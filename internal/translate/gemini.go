// gemini.go - Gemini-backed Backend implementation: crop each valid region,
// send all crops plus one prompt in a single call, then map the model's
// positional response indices back onto the original detection indices.

package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/toonslate/toonslate-backend/internal/common"
	"github.com/toonslate/toonslate-backend/internal/ratelimit"
)

const translatePrompt = `You will be shown %d cropped regions of text from a webtoon panel, each
labeled by its index. Translate the Korean text in every crop into natural
English, preserving tone and any onomatopoeia. Respond with a JSON array
where each element is {"index": <int>, "translated": "<text>"}. Include one
element per crop you were shown, using the index printed above it. If a crop
has no legible text, return an empty string for that index.`

type wireTranslation struct {
	Index      int    `json:"index"`
	Translated string `json:"translated"`
}

// GeminiBackend calls the Gemini API to translate cropped text regions.
type GeminiBackend struct {
	APIKey  string
	Model   string
	Limiter *ratelimit.Limiter
}

// NewGeminiBackend builds a GeminiBackend.
func NewGeminiBackend(apiKey, model string, limiter *ratelimit.Limiter) *GeminiBackend {
	return &GeminiBackend{APIKey: apiKey, Model: model, Limiter: limiter}
}

// Translate implements Backend. Regions whose bbox has non-positive area are
// skipped before a crop is ever produced; an empty regions slice returns
// immediately with no Gemini call.
func (g *GeminiBackend) Translate(ctx context.Context, imagePath string, regions []Region) ([]Result, error) {
	if len(regions) == 0 {
		return nil, nil
	}

	img, err := imaging.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("translate: open image: %w", err)
	}

	// originalIndices[positional slot] = original detection index. Crops are
	// submitted to the model in 0..K-1 positional order; the model's response
	// is remapped back through this slice rather than trusted to echo the
	// original index verbatim.
	originalIndices := make([]int, 0, len(regions))
	parts := []genai.Part{}

	for i, r := range regions {
		if !r.BBox.IsValid() {
			continue
		}
		x1, y1, x2, y2 := r.BBox.ToTuple()
		crop := imaging.Crop(img, imageRect(x1, y1, x2, y2))

		var buf bytes.Buffer
		if err := png.Encode(&buf, crop); err != nil {
			return nil, fmt.Errorf("translate: encode crop %d: %w", i, err)
		}

		partsIdx := len(originalIndices)
		originalIndices = append(originalIndices, i)
		parts = append(parts, genai.Text(fmt.Sprintf("Region index %d:", partsIdx)))
		parts = append(parts, genai.Blob{MIMEType: "image/png", Data: buf.Bytes()})
	}

	if len(originalIndices) == 0 {
		return nil, nil
	}

	if err := g.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return nil, &common.BackendError{Component: "translation", Category: "client_init", Message: "failed to create Gemini client", Cause: err}
	}
	defer client.Close()

	model := client.GenerativeModel(g.Model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = translationSchema()

	prompt := fmt.Sprintf(translatePrompt, len(originalIndices))
	allParts := append([]genai.Part{genai.Text(prompt)}, parts...)

	resp, err := model.GenerateContent(ctx, allParts...)
	if err != nil {
		return nil, &common.BackendError{Component: "translation", Category: "generate_content", Message: "Gemini request failed", Retryable: true, Cause: err}
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &common.BackendError{Component: "translation", Category: "empty_response", Message: "Gemini returned no candidates"}
	}

	var jsonText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			jsonText = string(text)
			break
		}
	}
	if jsonText == "" {
		return nil, &common.BackendError{Component: "translation", Category: "empty_response", Message: "Gemini returned no text part"}
	}

	var wire []wireTranslation
	if err := json.Unmarshal([]byte(jsonText), &wire); err != nil {
		return nil, &common.BackendError{Component: "translation", Category: "schema_mismatch", Message: "translation response did not match the expected schema", Cause: err}
	}

	results := make([]Result, 0, len(wire))
	for _, w := range wire {
		if w.Index < 0 || w.Index >= len(originalIndices) {
			log.Printf("translate: dropping out-of-range positional index %d (valid range [0,%d))", w.Index, len(originalIndices))
			continue
		}
		results = append(results, Result{Index: originalIndices[w.Index], Translated: w.Translated})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	return results, nil
}

func translationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"index":      {Type: genai.TypeInteger},
				"translated": {Type: genai.TypeString},
			},
			Required: []string{"index", "translated"},
		},
	}
}
