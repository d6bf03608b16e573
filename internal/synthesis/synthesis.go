// Package synthesis wraps the generative collaborator that produces try-on
// images and wardrobe analyses. The persistence core never calls it; it only
// receives the resulting values, which must pass through the reference codec
// before being persisted.
package synthesis

import (
	"context"

	"github.com/trykaro/wardrobe-service/internal/imageref"
	"github.com/trykaro/wardrobe-service/internal/wardrobe"
)

// TryOnRequest describes one virtual try-on generation.
type TryOnRequest struct {
	// PersonImage is the user's selfie: inline data or a remote URL.
	PersonImage imageref.Ref
	// ClothingImages are the garments to composite, same forms accepted.
	ClothingImages []imageref.Ref
	// PersonDetails is free text (body shape, skin tone, height) steering the render.
	PersonDetails string
}

// AnalysisRequest describes one wardrobe analysis run over extracted text.
type AnalysisRequest struct {
	// WardrobeText is the raw wardrobe inventory, e.g. extracted from an
	// uploaded document.
	WardrobeText string
	// Gender and Style bias the suggested outfits.
	Gender string
	Style  string
}

// Service is the content-synthesis contract.
type Service interface {
	// GenerateTryOn returns a composited image as an inline ref.
	GenerateTryOn(ctx context.Context, req TryOnRequest) (imageref.Ref, error)
	// AnalyzeWardrobe returns a structured analysis ready to persist.
	AnalyzeWardrobe(ctx context.Context, req AnalysisRequest) (wardrobe.WardrobeAnalysis, error)
}
