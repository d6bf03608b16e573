package synthesis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/trykaro/wardrobe-service/internal/imageref"
	"github.com/trykaro/wardrobe-service/internal/wardrobe"
)

const (
	imageModel = "gemini-2.0-flash-exp"
	textModel  = "gemini-2.0-flash"
)

type geminiService struct {
	client *genai.Client
}

// NewGemini creates a Gemini-backed synthesis service.
func NewGemini(ctx context.Context, apiKey string) (Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiService{client: client}, nil
}

func (s *geminiService) GenerateTryOn(ctx context.Context, req TryOnRequest) (imageref.Ref, error) {
	model := s.client.GenerativeModel(imageModel)

	prompt := fmt.Sprintf(`Composite the clothing items onto the person in the first image.
Keep the person's face, body and pose unchanged; only replace the outfit.
Person details: %s`, req.PersonDetails)

	parts := []genai.Part{genai.Text(prompt)}

	personPart, err := imagePart(req.PersonImage)
	if err != nil {
		return imageref.None(), fmt.Errorf("person image: %w", err)
	}
	parts = append(parts, personPart)

	for i, clothing := range req.ClothingImages {
		part, err := imagePart(clothing)
		if err != nil {
			return imageref.None(), fmt.Errorf("clothing image %d: %w", i, err)
		}
		parts = append(parts, part)
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return imageref.None(), fmt.Errorf("generate try-on: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return imageref.None(), fmt.Errorf("empty try-on response")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if blob, ok := part.(genai.Blob); ok {
			data := base64.StdEncoding.EncodeToString(blob.Data)
			return imageref.Inline("data:" + blob.MIMEType + ";base64," + data), nil
		}
	}
	return imageref.None(), fmt.Errorf("try-on response contained no image")
}

func (s *geminiService) AnalyzeWardrobe(ctx context.Context, req AnalysisRequest) (wardrobe.WardrobeAnalysis, error) {
	model := s.client.GenerativeModel(textModel)
	model.ResponseMIMEType = "application/json"

	prompt := fmt.Sprintf(`You are a personal stylist. Analyze this wardrobe inventory and reply with JSON:
{"summary": string,
 "colorPalette": [string],
 "wardrobeHealth": {"score": 0-100, "verdict": string, "missingEssentials": [string], "overusedItems": [string]},
 "colorProfile": {"undertone": string, "season": string, "bestColors": [string]},
 "items": [{"name": string, "color": string, "fit": string, "category": string, "pattern": string}],
 "outfits": [{"id": number, "top": string, "bottom": string, "style": string, "reasoning": string, "rating": 1-10, "upgradeTip": string, "visualPrompt": string}]}
Number outfit ids sequentially from 1.

Gender: %s
Preferred style: %s

Wardrobe:
%s`, req.Gender, req.Style, req.WardrobeText)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return wardrobe.WardrobeAnalysis{}, fmt.Errorf("analyze wardrobe: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return wardrobe.WardrobeAnalysis{}, fmt.Errorf("empty analysis response")
	}

	var payload strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			payload.WriteString(string(text))
		}
	}

	var analysis wardrobe.WardrobeAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload.String())), &analysis); err != nil {
		return wardrobe.WardrobeAnalysis{}, fmt.Errorf("decode analysis response: %w", err)
	}
	return analysis, nil
}

// imagePart converts a ref into a request part. Inline data URIs are decoded;
// remote URLs are passed as file references.
func imagePart(ref imageref.Ref) (genai.Part, error) {
	switch ref.Kind() {
	case imageref.KindRemote:
		return genai.FileData{URI: ref.Value()}, nil
	case imageref.KindInline:
		mime, data, err := decodeDataURI(ref.Value())
		if err != nil {
			return nil, err
		}
		return genai.ImageData(mime, data), nil
	default:
		return nil, fmt.Errorf("image is not inline data or a URL")
	}
}

func decodeDataURI(uri string) (format string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:image/")
	if !ok {
		return "", nil, fmt.Errorf("not an image data URI")
	}
	format, encoded, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	return format, data, nil
}
