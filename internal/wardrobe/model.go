package wardrobe

import (
	"context"
	"fmt"
	"strings"

	"github.com/trykaro/wardrobe-service/internal/imageref"
)

// PlanType identifies the subscription tier.
type PlanType string

const (
	PlanFree    PlanType = "Free"
	PlanTier99  PlanType = "Tier99"
	PlanTier299 PlanType = "Tier299"
)

// Defaults applied when an identity has no subscription document yet.
const (
	DefaultTokens     = 50
	DefaultTryOnLimit = 2
	DefaultSkinTone   = 10
)

// Origin/type tags partition the shared physical collections into logical
// categories. They are part of the persisted contract; renaming one is a
// schema migration.
const (
	OriginWishlist    = "WISHLIST"
	OriginPDFAnalysis = "PDF_ANALYSIS"
	TypeGeneratedLook = "GENERATED_LOOK"
	TypeWardrobeLook  = "WARDROBE_LOOK"
)

// Profile is the identity-scoped core profile document.
type Profile struct {
	Name       string       `json:"name"`
	City       string       `json:"city"`
	Gender     string       `json:"gender"`
	Occupation string       `json:"occupation"`
	Height     string       `json:"height"`
	Weight     string       `json:"weight"`
	BodyShape  string       `json:"bodyShape"`
	SkinTone   int          `json:"skinTone"` // 1-20 scale
	Avatar     imageref.Ref `json:"avatarImage"`
	WeeklyPlan *WeeklyPlan  `json:"weeklyPlan,omitempty"`
}

// Normalized returns a copy with defaults applied.
func (p Profile) Normalized() Profile {
	if p.SkinTone == 0 {
		p.SkinTone = DefaultSkinTone
	}
	return p
}

// Validate ensures the profile meets the domain constraints.
func (p Profile) Validate() error {
	var problems []string
	if p.SkinTone < 1 || p.SkinTone > 20 {
		problems = append(problems, "skinTone must be between 1 and 20")
	}
	if p.WeeklyPlan != nil {
		if err := p.WeeklyPlan.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid profile: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Entitlement is the identity-scoped subscription state. It is independent of
// Profile and persisted in its own collection so either can be updated alone.
type Entitlement struct {
	PlanType           PlanType `json:"planType"`
	PriceTier          int      `json:"priceTier"`
	Tokens             int      `json:"tokens"`     // meaningful under Free
	TryOnLimit         int      `json:"tryOnLimit"` // meaningful under paid tiers
	TryOnUsed          int      `json:"tryOnUsed"`
	HasPremiumFeatures bool     `json:"hasPremiumFeatures"`
}

// DefaultEntitlement is the state synthesized for an identity with no
// subscription document. A missing record never blocks the home experience.
func DefaultEntitlement() Entitlement {
	return Entitlement{
		PlanType:   PlanFree,
		Tokens:     DefaultTokens,
		TryOnLimit: DefaultTryOnLimit,
	}
}

// WishlistItem is a saved shopping suggestion.
type WishlistItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	Link         string `json:"link"`
	ImageKeyword string `json:"image_keyword,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// GeneratedLook is a saved image-synthesis result. Never mutated after creation.
type GeneratedLook struct {
	ID          string       `json:"id"`
	Image       imageref.Ref `json:"image"`
	Description string       `json:"description"`
	Timestamp   int64        `json:"timestamp"`
}

// WardrobeHealth scores the analyzed wardrobe.
type WardrobeHealth struct {
	Score             int      `json:"score"` // 0-100
	Verdict           string   `json:"verdict"`
	MissingEssentials []string `json:"missingEssentials"`
	OverusedItems     []string `json:"overusedItems"`
}

// ColorProfile captures the personal color analysis.
type ColorProfile struct {
	Undertone  string   `json:"undertone"`
	Season     string   `json:"season"`
	BestColors []string `json:"bestColors"`
}

// AnalysisItem is one classified garment from a wardrobe analysis.
type AnalysisItem struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	Fit      string `json:"fit"`
	Category string `json:"category"`
	Pattern  string `json:"pattern,omitempty"`
}

// AnalysisOutfit is one suggested outfit from a wardrobe analysis. ID is
// unique within a single analysis generation only; document keys namespace it
// with the owner id.
type AnalysisOutfit struct {
	ID             int          `json:"id"`
	Top            string       `json:"top"`
	Bottom         string       `json:"bottom"`
	Style          string       `json:"style"`
	Reasoning      string       `json:"reasoning"`
	Rating         int          `json:"rating"`
	UpgradeTip     string       `json:"upgradeTip"`
	VisualPrompt   string       `json:"visualPrompt"`
	GeneratedImage imageref.Ref `json:"generatedImage"`
}

// WardrobeAnalysis is the logically-latest analysis for an identity. There is
// exactly one live analysis per owner; it is replaced wholesale or deleted via
// the cascade, never patched field-by-field across the network boundary.
type WardrobeAnalysis struct {
	Summary      string           `json:"summary"`
	ColorPalette []string         `json:"colorPalette"`
	Health       WardrobeHealth   `json:"wardrobeHealth"`
	ColorProfile ColorProfile     `json:"colorProfile"`
	Items        []AnalysisItem   `json:"items"`
	Outfits      []AnalysisOutfit `json:"outfits"`
}

// PlanDay is one entry of the weekly outfit plan.
type PlanDay struct {
	Day        string       `json:"day"`
	OutfitID   string       `json:"outfitId"`
	OutfitName string       `json:"outfitName"`
	Image      imageref.Ref `json:"image"`
	Worn       bool         `json:"worn"`
}

// WeeklyPlan is stored as a sub-document of the profile.
type WeeklyPlan struct {
	Days         []PlanDay `json:"days"`
	ReminderTime string    `json:"reminderTime,omitempty"`
}

// Validate ensures the plan covers at most a week.
func (p WeeklyPlan) Validate() error {
	if len(p.Days) > 7 {
		return fmt.Errorf("weekly plan has %d days, want at most 7", len(p.Days))
	}
	return nil
}

// Account is the full in-memory aggregate for one identity. Updates are
// value-producing: every mutation returns a new Account rather than patching
// shared state in place.
type Account struct {
	Profile     Profile           `json:"profile"`
	Entitlement Entitlement       `json:"entitlement"`
	Wishlist    []WishlistItem    `json:"savedItems"`
	Looks       []GeneratedLook   `json:"savedLooks"`
	Analysis    *WardrobeAnalysis `json:"wardrobeAnalysis,omitempty"`
}

// WithWishlistItem appends item, rejecting a duplicate purchase link.
func (a Account) WithWishlistItem(item WishlistItem) (Account, error) {
	for _, existing := range a.Wishlist {
		if existing.Link == item.Link {
			return a, ErrDuplicateWishlistLink
		}
	}
	wishlist := make([]WishlistItem, len(a.Wishlist), len(a.Wishlist)+1)
	copy(wishlist, a.Wishlist)
	a.Wishlist = append(wishlist, item)
	return a, nil
}

// WithoutWishlistItem drops the item with the given id, if present.
func (a Account) WithoutWishlistItem(itemID string) Account {
	wishlist := make([]WishlistItem, 0, len(a.Wishlist))
	for _, item := range a.Wishlist {
		if item.ID != itemID {
			wishlist = append(wishlist, item)
		}
	}
	a.Wishlist = wishlist
	return a
}

// WithLook appends a generated look.
func (a Account) WithLook(look GeneratedLook) Account {
	looks := make([]GeneratedLook, len(a.Looks), len(a.Looks)+1)
	copy(looks, a.Looks)
	a.Looks = append(looks, look)
	return a
}

// WithAnalysis replaces the live wardrobe analysis.
func (a Account) WithAnalysis(analysis WardrobeAnalysis) Account {
	a.Analysis = &analysis
	return a
}

// WithoutAnalysis clears the live wardrobe analysis.
func (a Account) WithoutAnalysis() Account {
	a.Analysis = nil
	return a
}

// WardrobeItemRecord is a row of the shared wardrobe_items collection before
// partitioning by origin tag.
type WardrobeItemRecord struct {
	ID           string
	OwnerID      string
	Origin       string
	Name         string
	Price        string
	Link         string
	ImageKeyword string
	Timestamp    int64
	Color        string
	Fit          string
	Category     string
	Pattern      string
	AnalysisID   string
}

// OutfitRecord is a row of the shared outfits collection before partitioning
// by type tag. Image holds the encoded reference form.
type OutfitRecord struct {
	DocID        string
	OwnerID      string
	Type         string
	Image        imageref.Ref
	Description  string
	Timestamp    int64
	Top          string
	Bottom       string
	Style        string
	Reasoning    string
	Rating       int
	UpgradeTip   string
	VisualPrompt string
	AnalysisID   string
}

// AnalysisSummary is the wardrobe_analyses metadata document, read back
// separately from the items/outfits it was generated with.
type AnalysisSummary struct {
	Summary      string
	ColorPalette []string
	Health       WardrobeHealth
	ColorProfile ColorProfile
}

// Repository is the remote document store capability the orchestrator writes
// through. Image fields must already be in reference form when they arrive
// here; implementations never touch the blob store.
type Repository interface {
	// SaveCore upserts profile and entitlement in one atomic batch (merge).
	SaveCore(ctx context.Context, ownerID string, profile Profile, ent Entitlement) error
	// SaveWeeklyPlan patches only the plan field of the profile document.
	SaveWeeklyPlan(ctx context.Context, ownerID string, plan WeeklyPlan) error
	// SaveWishlist replaces each item document wholesale in one batch.
	SaveWishlist(ctx context.Context, ownerID string, items []WishlistItem) error
	// SaveLooks upserts each look document (merge) in one batch.
	SaveLooks(ctx context.Context, ownerID string, looks []GeneratedLook) error
	// SaveAnalysis writes metadata, item and outfit documents in one batch.
	SaveAnalysis(ctx context.Context, ownerID string, analysis WardrobeAnalysis) error

	GetProfile(ctx context.Context, ownerID string) (Profile, error)
	GetEntitlement(ctx context.Context, ownerID string) (Entitlement, error)
	GetAnalysisSummary(ctx context.Context, ownerID string) (AnalysisSummary, error)
	ListWardrobeItems(ctx context.Context, ownerID string) ([]WardrobeItemRecord, error)
	ListOutfits(ctx context.Context, ownerID string) ([]OutfitRecord, error)

	DeleteWishlistItem(ctx context.Context, ownerID, itemID string) error
	// DeleteAnalysis removes the metadata document and every derived
	// item/outfit document in one atomic batch.
	DeleteAnalysis(ctx context.Context, ownerID string) error
}

// Service is the persistence orchestrator.
type Service interface {
	Save(ctx context.Context, ownerID string, acct Account) (SaveResult, error)
	LoadCore(ctx context.Context, ownerID string) (*Account, error)
	LoadHistory(ctx context.Context, ownerID string) History
	AddWishlistItem(ctx context.Context, ownerID string, item WishlistItem) (WishlistItem, error)
	RemoveWishlistItem(ctx context.Context, ownerID, itemID string) error
	SaveWeeklyPlan(ctx context.Context, ownerID string, plan WeeklyPlan) error
	DeleteWardrobeAnalysis(ctx context.Context, ownerID string) error
}
