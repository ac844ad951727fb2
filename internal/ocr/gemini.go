package ocr

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const extractPrompt = "Analyze the image of this industrial gas meter. " +
	"Identify the large numeric digits on the counter. " +
	"Return ONLY the number in JSON format."

// Gemini reads meter counters with the Gemini vision models. No latency or
// accuracy guarantee; the save path never blocks on it.
type Gemini struct {
	client *genai.Client
	model  string
	log    zerolog.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model, log: logger}, nil
}

func (g *Gemini) Extract(ctx context.Context, dataURL string) Result {
	mimeType, data, err := DecodeDataURL(dataURL)
	if err != nil {
		g.log.Error().Err(err).Msg("ocr: bad image payload")
		return Result{}
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(extractPrompt),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"value": {
					Type:        genai.TypeNumber,
					Description: "The numeric value read from the gas meter's counter.",
				},
			},
			Required: []string{"value"},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.log.Error().Err(err).Msg("ocr: generate content failed")
		return Result{}
	}

	text := resp.Text()
	if text == "" {
		return Result{}
	}
	var parsed Result
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		g.log.Error().Err(err).Str("response", text).Msg("ocr: unparseable model response")
		return Result{}
	}
	return parsed
}
