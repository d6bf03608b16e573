package wardrobe

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu           sync.RWMutex
	profiles     map[string]Profile
	entitlements map[string]Entitlement
	items        map[string]WardrobeItemRecord // doc id -> record
	outfits      map[string]OutfitRecord       // doc id -> record
	analyses     map[string]AnalysisSummary    // analysis doc id -> summary
}

// NewMemoryRepository returns an in-memory repository intended for local
// development and tests. It mirrors the remote store's behavior, including
// the absence of cascading relationships between collections.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		profiles:     make(map[string]Profile),
		entitlements: make(map[string]Entitlement),
		items:        make(map[string]WardrobeItemRecord),
		outfits:      make(map[string]OutfitRecord),
		analyses:     make(map[string]AnalysisSummary),
	}
}

func (r *memoryRepository) SaveCore(_ context.Context, ownerID string, profile Profile, ent Entitlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[ownerID] = profile
	r.entitlements[ownerID] = ent
	return nil
}

func (r *memoryRepository) SaveWeeklyPlan(_ context.Context, ownerID string, plan WeeklyPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile := r.profiles[ownerID]
	profile.WeeklyPlan = &plan
	r.profiles[ownerID] = profile
	return nil
}

func (r *memoryRepository) SaveWishlist(_ context.Context, ownerID string, items []WishlistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		r.items[item.ID] = WardrobeItemRecord{
			ID:           item.ID,
			OwnerID:      ownerID,
			Origin:       OriginWishlist,
			Name:         item.Name,
			Price:        item.Price,
			Link:         item.Link,
			ImageKeyword: item.ImageKeyword,
			Timestamp:    item.Timestamp,
		}
	}
	return nil
}

func (r *memoryRepository) SaveLooks(_ context.Context, ownerID string, looks []GeneratedLook) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, look := range looks {
		r.outfits[look.ID] = OutfitRecord{
			DocID:       look.ID,
			OwnerID:     ownerID,
			Type:        TypeGeneratedLook,
			Image:       look.Image,
			Description: look.Description,
			Timestamp:   look.Timestamp,
		}
	}
	return nil
}

func (r *memoryRepository) SaveAnalysis(_ context.Context, ownerID string, analysis WardrobeAnalysis) error {
	analysisID := AnalysisDocID(ownerID)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.analyses[analysisID] = AnalysisSummary{
		Summary:      analysis.Summary,
		ColorPalette: analysis.ColorPalette,
		Health:       analysis.Health,
		ColorProfile: analysis.ColorProfile,
	}

	for idx, item := range analysis.Items {
		itemID := AnalysisItemDocID(ownerID, idx)
		r.items[itemID] = WardrobeItemRecord{
			ID:         itemID,
			OwnerID:    ownerID,
			Origin:     OriginPDFAnalysis,
			Name:       item.Name,
			Color:      item.Color,
			Fit:        item.Fit,
			Category:   item.Category,
			Pattern:    item.Pattern,
			AnalysisID: analysisID,
		}
	}

	for _, outfit := range analysis.Outfits {
		outfitID := AnalysisOutfitDocID(ownerID, outfit.ID)
		r.outfits[outfitID] = OutfitRecord{
			DocID:        outfitID,
			OwnerID:      ownerID,
			Type:         TypeWardrobeLook,
			Image:        outfit.GeneratedImage,
			Top:          outfit.Top,
			Bottom:       outfit.Bottom,
			Style:        outfit.Style,
			Reasoning:    outfit.Reasoning,
			Rating:       outfit.Rating,
			UpgradeTip:   outfit.UpgradeTip,
			VisualPrompt: outfit.VisualPrompt,
			AnalysisID:   analysisID,
		}
	}
	return nil
}

func (r *memoryRepository) GetProfile(_ context.Context, ownerID string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[ownerID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return profile, nil
}

func (r *memoryRepository) GetEntitlement(_ context.Context, ownerID string) (Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent, ok := r.entitlements[ownerID]
	if !ok {
		return Entitlement{}, ErrNotFound
	}
	return ent, nil
}

func (r *memoryRepository) GetAnalysisSummary(_ context.Context, ownerID string) (AnalysisSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summary, ok := r.analyses[AnalysisDocID(ownerID)]
	if !ok {
		return AnalysisSummary{}, ErrNotFound
	}
	return summary, nil
}

func (r *memoryRepository) ListWardrobeItems(_ context.Context, ownerID string) ([]WardrobeItemRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var records []WardrobeItemRecord
	for _, rec := range r.items {
		if rec.OwnerID == ownerID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *memoryRepository) ListOutfits(_ context.Context, ownerID string) ([]OutfitRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var records []OutfitRecord
	for _, rec := range r.outfits {
		if rec.OwnerID == ownerID {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *memoryRepository) DeleteWishlistItem(_ context.Context, ownerID, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.items[itemID]
	if !ok {
		return nil
	}
	if rec.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.items, itemID)
	return nil
}

func (r *memoryRepository) DeleteAnalysis(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.analyses, AnalysisDocID(ownerID))
	for id, rec := range r.items {
		if rec.OwnerID == ownerID && rec.Origin == OriginPDFAnalysis {
			delete(r.items, id)
		}
	}
	for id, rec := range r.outfits {
		if rec.OwnerID == ownerID && rec.Type == TypeWardrobeLook {
			delete(r.outfits, id)
		}
	}
	return nil
}
