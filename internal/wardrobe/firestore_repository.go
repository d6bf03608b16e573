package wardrobe

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/trykaro/wardrobe-service/internal/imageref"
)

// Physical collections. The document field names and tag values below are a
// stable persisted contract shared with existing client data.
const (
	collUsers         = "users"
	collSubscriptions = "subscriptions"
	collWardrobeItems = "wardrobe_items"
	collOutfits       = "outfits"
	collAnalyses      = "wardrobe_analyses"
)

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository creates a Firestore-backed repository.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

func (r *firestoreRepository) SaveCore(ctx context.Context, ownerID string, profile Profile, ent Entitlement) error {
	now := time.Now().UTC()

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		userRef := r.client.Collection(collUsers).Doc(ownerID)
		userData := map[string]any{
			"user_id":     ownerID,
			"name":        profile.Name,
			"city":        profile.City,
			"gender":      profile.Gender,
			"occupation":  profile.Occupation,
			"height":      profile.Height,
			"weight":      profile.Weight,
			"bodyShape":   profile.BodyShape,
			"skinTone":    profile.SkinTone,
			"avatarImage": storageValue(profile.Avatar),
			"updatedAt":   now,
		}
		if profile.WeeklyPlan != nil {
			userData["weeklyPlan"] = planToDoc(*profile.WeeklyPlan)
		}
		if err := tx.Set(userRef, userData, firestore.MergeAll); err != nil {
			return err
		}

		subRef := r.client.Collection(collSubscriptions).Doc(ownerID)
		return tx.Set(subRef, map[string]any{
			"user_id":            ownerID,
			"planType":           string(ent.PlanType),
			"priceTier":          ent.PriceTier,
			"tokens":             ent.Tokens,
			"tryOnLimit":         ent.TryOnLimit,
			"tryOnUsed":          ent.TryOnUsed,
			"hasPremiumFeatures": ent.HasPremiumFeatures,
			"updatedAt":          now,
		}, firestore.MergeAll)
	})
}

func (r *firestoreRepository) SaveWeeklyPlan(ctx context.Context, ownerID string, plan WeeklyPlan) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		userRef := r.client.Collection(collUsers).Doc(ownerID)
		return tx.Set(userRef, map[string]any{
			"user_id":    ownerID,
			"weeklyPlan": planToDoc(plan),
			"updatedAt":  time.Now().UTC(),
		}, firestore.MergeAll)
	})
}

func (r *firestoreRepository) SaveWishlist(ctx context.Context, ownerID string, items []WishlistItem) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, item := range items {
			ref := r.client.Collection(collWardrobeItems).Doc(item.ID)
			// Full replace per item, not a merge.
			if err := tx.Set(ref, map[string]any{
				"item_id":       item.ID,
				"user_id":       ownerID,
				"name":          item.Name,
				"price":         item.Price,
				"link":          item.Link,
				"image_keyword": item.ImageKeyword,
				"timestamp":     item.Timestamp,
				"origin":        OriginWishlist,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *firestoreRepository) SaveLooks(ctx context.Context, ownerID string, looks []GeneratedLook) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, look := range looks {
			ref := r.client.Collection(collOutfits).Doc(look.ID)
			if err := tx.Set(ref, map[string]any{
				"outfit_id":   look.ID,
				"user_id":     ownerID,
				"image":       storageValue(look.Image),
				"description": look.Description,
				"timestamp":   look.Timestamp,
				"type":        TypeGeneratedLook,
			}, firestore.MergeAll); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *firestoreRepository) SaveAnalysis(ctx context.Context, ownerID string, analysis WardrobeAnalysis) error {
	analysisID := AnalysisDocID(ownerID)
	now := time.Now().UTC()

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		metaRef := r.client.Collection(collAnalyses).Doc(analysisID)
		if err := tx.Set(metaRef, map[string]any{
			"analysis_id":  analysisID,
			"user_id":      ownerID,
			"summary":      analysis.Summary,
			"colorPalette": analysis.ColorPalette,
			"wardrobeHealth": map[string]any{
				"score":             analysis.Health.Score,
				"verdict":           analysis.Health.Verdict,
				"missingEssentials": analysis.Health.MissingEssentials,
				"overusedItems":     analysis.Health.OverusedItems,
			},
			"colorProfile": map[string]any{
				"undertone":  analysis.ColorProfile.Undertone,
				"season":     analysis.ColorProfile.Season,
				"bestColors": analysis.ColorProfile.BestColors,
			},
			"updatedAt": now,
		}); err != nil {
			return err
		}

		for idx, item := range analysis.Items {
			itemID := AnalysisItemDocID(ownerID, idx)
			ref := r.client.Collection(collWardrobeItems).Doc(itemID)
			if err := tx.Set(ref, map[string]any{
				"item_id":     itemID,
				"user_id":     ownerID,
				"name":        item.Name,
				"color":       item.Color,
				"fit":         item.Fit,
				"category":    item.Category,
				"pattern":     item.Pattern,
				"origin":      OriginPDFAnalysis,
				"analysis_id": analysisID,
			}); err != nil {
				return err
			}
		}

		for _, outfit := range analysis.Outfits {
			outfitID := AnalysisOutfitDocID(ownerID, outfit.ID)
			ref := r.client.Collection(collOutfits).Doc(outfitID)
			if err := tx.Set(ref, map[string]any{
				"outfit_id":    outfitID,
				"user_id":      ownerID,
				"type":         TypeWardrobeLook,
				"analysis_id":  analysisID,
				"top":          outfit.Top,
				"bottom":       outfit.Bottom,
				"style":        outfit.Style,
				"reasoning":    outfit.Reasoning,
				"rating":       outfit.Rating,
				"upgradeTip":   outfit.UpgradeTip,
				"visualPrompt": outfit.VisualPrompt,
				"image":        storageValue(outfit.GeneratedImage),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

type profileDoc struct {
	Name       string         `firestore:"name"`
	City       string         `firestore:"city"`
	Gender     string         `firestore:"gender"`
	Occupation string         `firestore:"occupation"`
	Height     string         `firestore:"height"`
	Weight     string         `firestore:"weight"`
	BodyShape  string         `firestore:"bodyShape"`
	SkinTone   int            `firestore:"skinTone"`
	Avatar     *string        `firestore:"avatarImage"`
	WeeklyPlan *weeklyPlanDoc `firestore:"weeklyPlan"`
}

type weeklyPlanDoc struct {
	Days     []planDayDoc `firestore:"days"`
	Reminder string       `firestore:"reminder"`
}

type planDayDoc struct {
	Day        string  `firestore:"day"`
	OutfitID   string  `firestore:"outfitId"`
	OutfitName string  `firestore:"outfitName"`
	Image      *string `firestore:"image"`
	Worn       bool    `firestore:"worn"`
}

func (r *firestoreRepository) GetProfile(ctx context.Context, ownerID string) (Profile, error) {
	doc, err := r.client.Collection(collUsers).Doc(ownerID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}

	var data profileDoc
	if err := doc.DataTo(&data); err != nil {
		return Profile{}, fmt.Errorf("unmarshal profile: %w", err)
	}

	profile := Profile{
		Name:       data.Name,
		City:       data.City,
		Gender:     data.Gender,
		Occupation: data.Occupation,
		Height:     data.Height,
		Weight:     data.Weight,
		BodyShape:  data.BodyShape,
		SkinTone:   data.SkinTone,
		Avatar:     imageref.FromStorage(data.Avatar),
	}
	if data.WeeklyPlan != nil {
		days := make([]PlanDay, len(data.WeeklyPlan.Days))
		for i, d := range data.WeeklyPlan.Days {
			days[i] = PlanDay{
				Day:        d.Day,
				OutfitID:   d.OutfitID,
				OutfitName: d.OutfitName,
				Image:      imageref.FromStorage(d.Image),
				Worn:       d.Worn,
			}
		}
		profile.WeeklyPlan = &WeeklyPlan{Days: days, ReminderTime: data.WeeklyPlan.Reminder}
	}
	return profile, nil
}

type entitlementDoc struct {
	PlanType           string `firestore:"planType"`
	PriceTier          int    `firestore:"priceTier"`
	Tokens             int    `firestore:"tokens"`
	TryOnLimit         int    `firestore:"tryOnLimit"`
	TryOnUsed          int    `firestore:"tryOnUsed"`
	HasPremiumFeatures bool   `firestore:"hasPremiumFeatures"`
}

func (r *firestoreRepository) GetEntitlement(ctx context.Context, ownerID string) (Entitlement, error) {
	doc, err := r.client.Collection(collSubscriptions).Doc(ownerID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Entitlement{}, ErrNotFound
	}
	if err != nil {
		return Entitlement{}, err
	}

	var data entitlementDoc
	if err := doc.DataTo(&data); err != nil {
		return Entitlement{}, fmt.Errorf("unmarshal entitlement: %w", err)
	}

	ent := Entitlement{
		PlanType:           PlanType(data.PlanType),
		PriceTier:          data.PriceTier,
		Tokens:             data.Tokens,
		TryOnLimit:         data.TryOnLimit,
		TryOnUsed:          data.TryOnUsed,
		HasPremiumFeatures: data.HasPremiumFeatures,
	}
	if ent.PlanType == "" {
		ent.PlanType = PlanFree
	}
	return ent, nil
}

type analysisDoc struct {
	Summary      string   `firestore:"summary"`
	ColorPalette []string `firestore:"colorPalette"`
	Health       struct {
		Score             int      `firestore:"score"`
		Verdict           string   `firestore:"verdict"`
		MissingEssentials []string `firestore:"missingEssentials"`
		OverusedItems     []string `firestore:"overusedItems"`
	} `firestore:"wardrobeHealth"`
	ColorProfile struct {
		Undertone  string   `firestore:"undertone"`
		Season     string   `firestore:"season"`
		BestColors []string `firestore:"bestColors"`
	} `firestore:"colorProfile"`
}

func (r *firestoreRepository) GetAnalysisSummary(ctx context.Context, ownerID string) (AnalysisSummary, error) {
	doc, err := r.client.Collection(collAnalyses).Doc(AnalysisDocID(ownerID)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return AnalysisSummary{}, ErrNotFound
	}
	if err != nil {
		return AnalysisSummary{}, err
	}

	var data analysisDoc
	if err := doc.DataTo(&data); err != nil {
		return AnalysisSummary{}, fmt.Errorf("unmarshal analysis: %w", err)
	}

	return AnalysisSummary{
		Summary:      data.Summary,
		ColorPalette: data.ColorPalette,
		Health: WardrobeHealth{
			Score:             data.Health.Score,
			Verdict:           data.Health.Verdict,
			MissingEssentials: data.Health.MissingEssentials,
			OverusedItems:     data.Health.OverusedItems,
		},
		ColorProfile: ColorProfile{
			Undertone:  data.ColorProfile.Undertone,
			Season:     data.ColorProfile.Season,
			BestColors: data.ColorProfile.BestColors,
		},
	}, nil
}

type wardrobeItemDoc struct {
	ItemID       string `firestore:"item_id"`
	UserID       string `firestore:"user_id"`
	Origin       string `firestore:"origin"`
	Name         string `firestore:"name"`
	Price        string `firestore:"price"`
	Link         string `firestore:"link"`
	ImageKeyword string `firestore:"image_keyword"`
	Timestamp    int64  `firestore:"timestamp"`
	Color        string `firestore:"color"`
	Fit          string `firestore:"fit"`
	Category     string `firestore:"category"`
	Pattern      string `firestore:"pattern"`
	AnalysisID   string `firestore:"analysis_id"`
}

func (r *firestoreRepository) ListWardrobeItems(ctx context.Context, ownerID string) ([]WardrobeItemRecord, error) {
	iter := r.client.Collection(collWardrobeItems).
		Where("user_id", "==", ownerID).
		Documents(ctx)
	defer iter.Stop()

	var records []WardrobeItemRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var data wardrobeItemDoc
		if err := doc.DataTo(&data); err != nil {
			return nil, fmt.Errorf("unmarshal wardrobe item %s: %w", doc.Ref.ID, err)
		}

		id := data.ItemID
		if id == "" {
			id = doc.Ref.ID
		}
		records = append(records, WardrobeItemRecord{
			ID:           id,
			OwnerID:      data.UserID,
			Origin:       data.Origin,
			Name:         data.Name,
			Price:        data.Price,
			Link:         data.Link,
			ImageKeyword: data.ImageKeyword,
			Timestamp:    data.Timestamp,
			Color:        data.Color,
			Fit:          data.Fit,
			Category:     data.Category,
			Pattern:      data.Pattern,
			AnalysisID:   data.AnalysisID,
		})
	}
	return records, nil
}

type outfitDoc struct {
	OutfitID     string  `firestore:"outfit_id"`
	UserID       string  `firestore:"user_id"`
	Type         string  `firestore:"type"`
	Image        *string `firestore:"image"`
	Description  string  `firestore:"description"`
	Timestamp    int64   `firestore:"timestamp"`
	Top          string  `firestore:"top"`
	Bottom       string  `firestore:"bottom"`
	Style        string  `firestore:"style"`
	Reasoning    string  `firestore:"reasoning"`
	Rating       int     `firestore:"rating"`
	UpgradeTip   string  `firestore:"upgradeTip"`
	VisualPrompt string  `firestore:"visualPrompt"`
	AnalysisID   string  `firestore:"analysis_id"`
}

func (r *firestoreRepository) ListOutfits(ctx context.Context, ownerID string) ([]OutfitRecord, error) {
	iter := r.client.Collection(collOutfits).
		Where("user_id", "==", ownerID).
		Documents(ctx)
	defer iter.Stop()

	var records []OutfitRecord
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var data outfitDoc
		if err := doc.DataTo(&data); err != nil {
			return nil, fmt.Errorf("unmarshal outfit %s: %w", doc.Ref.ID, err)
		}

		id := data.OutfitID
		if id == "" {
			id = doc.Ref.ID
		}
		records = append(records, OutfitRecord{
			DocID:        id,
			OwnerID:      data.UserID,
			Type:         data.Type,
			Image:        imageref.FromStorage(data.Image),
			Description:  data.Description,
			Timestamp:    data.Timestamp,
			Top:          data.Top,
			Bottom:       data.Bottom,
			Style:        data.Style,
			Reasoning:    data.Reasoning,
			Rating:       data.Rating,
			UpgradeTip:   data.UpgradeTip,
			VisualPrompt: data.VisualPrompt,
			AnalysisID:   data.AnalysisID,
		})
	}
	return records, nil
}

func (r *firestoreRepository) DeleteWishlistItem(ctx context.Context, ownerID, itemID string) error {
	ref := r.client.Collection(collWardrobeItems).Doc(itemID)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var data wardrobeItemDoc
		if err := doc.DataTo(&data); err != nil {
			return fmt.Errorf("unmarshal wardrobe item %s: %w", itemID, err)
		}
		if data.UserID != ownerID {
			return ErrNotFound
		}
		return tx.Delete(ref)
	})
}

func (r *firestoreRepository) DeleteAnalysis(ctx context.Context, ownerID string) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// Firestore requires all transaction reads before any write.
		itemDocs, err := tx.Documents(r.client.Collection(collWardrobeItems).
			Where("user_id", "==", ownerID).
			Where("origin", "==", OriginPDFAnalysis)).GetAll()
		if err != nil {
			return err
		}

		outfitDocs, err := tx.Documents(r.client.Collection(collOutfits).
			Where("user_id", "==", ownerID).
			Where("type", "==", TypeWardrobeLook)).GetAll()
		if err != nil {
			return err
		}

		if err := tx.Delete(r.client.Collection(collAnalyses).Doc(AnalysisDocID(ownerID))); err != nil {
			return err
		}
		for _, doc := range itemDocs {
			if err := tx.Delete(doc.Ref); err != nil {
				return err
			}
		}
		for _, doc := range outfitDocs {
			if err := tx.Delete(doc.Ref); err != nil {
				return err
			}
		}
		return nil
	})
}

func storageValue(ref imageref.Ref) any {
	if v := ref.StorageValue(); v != nil {
		return *v
	}
	return nil
}

func planToDoc(plan WeeklyPlan) map[string]any {
	days := make([]map[string]any, len(plan.Days))
	for i, day := range plan.Days {
		days[i] = map[string]any{
			"day":        day.Day,
			"outfitId":   day.OutfitID,
			"outfitName": day.OutfitName,
			"image":      storageValue(day.Image),
			"worn":       day.Worn,
		}
	}
	return map[string]any{
		"days":     days,
		"reminder": plan.ReminderTime,
	}
}
