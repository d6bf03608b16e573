package wardrobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/trykaro/wardrobe-service/internal/imageref"
)

const defaultRemoteTimeout = 8 * time.Second

// Save slices reported in SliceFailure.
const (
	SliceWishlist = "wishlist"
	SliceLooks    = "looks"
	SliceAnalysis = "analysis"
)

// SliceFailure records one best-effort slice that failed to persist or load.
type SliceFailure struct {
	Slice string `json:"slice"`
	Err   error  `json:"-"`
}

// SaveResult is the tagged outcome of a save: a returned error means the
// critical phase failed and nothing else was attempted; Failures lists
// best-effort slices whose remote copy may lag the in-memory state.
type SaveResult struct {
	Failures []SliceFailure `json:"failures,omitempty"`
}

// Partial reports whether any best-effort slice failed.
func (r SaveResult) Partial() bool { return len(r.Failures) > 0 }

// History is the background-loaded portion of an account. Each slice is
// independently fault-tolerant: a failed group leaves its zero value and an
// entry in Failures, never suppressing the others.
type History struct {
	Wishlist []WishlistItem    `json:"savedItems"`
	Looks    []GeneratedLook   `json:"savedLooks"`
	Analysis *WardrobeAnalysis `json:"wardrobeAnalysis,omitempty"`
	Failures []SliceFailure    `json:"failures,omitempty"`
}

type service struct {
	repo    Repository
	codec   *imageref.Codec
	logger  *slog.Logger
	timeout time.Duration
}

// Option customizes the service.
type Option func(*service)

// WithRemoteTimeout bounds every remote call issued by the orchestrator.
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService creates the persistence orchestrator.
func NewService(repo Repository, codec *imageref.Codec, logger *slog.Logger, opts ...Option) Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{repo: repo, codec: codec, logger: logger, timeout: defaultRemoteTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save decomposes the aggregate into per-collection batches. Phase 1
// (profile + entitlement) is critical: its failure aborts the save and is
// returned. Phases 2-4 (wishlist, looks, analysis) are best-effort: failures
// are logged, recorded in the result, and never abort later phases.
func (s *service) Save(ctx context.Context, ownerID string, acct Account) (SaveResult, error) {
	var result SaveResult
	if ownerID == "" {
		return result, errors.Join(ErrCriticalSave, errors.New("missing owner id"))
	}

	profile := acct.Profile.Normalized()
	if err := profile.Validate(); err != nil {
		return result, errors.Join(ErrCriticalSave, err)
	}

	// Phase 1: critical core data.
	profile.Avatar = s.codec.EncodeForRemote(ctx, profile.Avatar)
	if profile.WeeklyPlan != nil {
		plan := s.encodePlan(ctx, *profile.WeeklyPlan)
		profile.WeeklyPlan = &plan
	}
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.repo.SaveCore(ctx, ownerID, profile, acct.Entitlement)
	}); err != nil {
		return result, errors.Join(ErrCriticalSave, err)
	}

	// Phase 2: wishlist.
	if len(acct.Wishlist) > 0 {
		if err := s.withTimeout(ctx, func(ctx context.Context) error {
			return s.repo.SaveWishlist(ctx, ownerID, acct.Wishlist)
		}); err != nil {
			s.logger.Warn("wishlist batch failed", "owner", ownerID, "error", err)
			result.Failures = append(result.Failures, SliceFailure{Slice: SliceWishlist, Err: err})
		}
	}

	// Phase 3: generated looks. A failed image encode degrades that one
	// look's image to null instead of aborting the batch.
	if len(acct.Looks) > 0 {
		looks := make([]GeneratedLook, len(acct.Looks))
		for i, look := range acct.Looks {
			look.Image = s.codec.EncodeForRemote(ctx, look.Image)
			looks[i] = look
		}
		if err := s.withTimeout(ctx, func(ctx context.Context) error {
			return s.repo.SaveLooks(ctx, ownerID, looks)
		}); err != nil {
			s.logger.Warn("looks batch failed", "owner", ownerID, "error", err)
			result.Failures = append(result.Failures, SliceFailure{Slice: SliceLooks, Err: err})
		}
	}

	// Phase 4: wardrobe analysis.
	if acct.Analysis != nil {
		analysis := *acct.Analysis
		outfits := make([]AnalysisOutfit, len(analysis.Outfits))
		for i, outfit := range analysis.Outfits {
			outfit.GeneratedImage = s.codec.EncodeForRemote(ctx, outfit.GeneratedImage)
			outfits[i] = outfit
		}
		analysis.Outfits = outfits

		if err := s.withTimeout(ctx, func(ctx context.Context) error {
			return s.repo.SaveAnalysis(ctx, ownerID, analysis)
		}); err != nil {
			s.logger.Warn("analysis batch failed", "owner", ownerID, "error", err)
			result.Failures = append(result.Failures, SliceFailure{Slice: SliceAnalysis, Err: err})
		}
	}

	return result, nil
}

// LoadCore is the fast critical-path read: profile and entitlement only,
// wishlist/looks/analysis left empty for LoadHistory. Returns nil when the
// identity has no profile document yet.
func (s *service) LoadCore(ctx context.Context, ownerID string) (*Account, error) {
	if ownerID == "" {
		return nil, nil
	}

	var profile Profile
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.repo.GetProfile(ctx, ownerID)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", ownerID, err)
	}

	ent := DefaultEntitlement()
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		loaded, err := s.repo.GetEntitlement(ctx, ownerID)
		if err != nil {
			return err
		}
		ent = loaded
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		// A broken subscription read must not block the home experience.
		s.logger.Warn("entitlement read failed, using defaults", "owner", ownerID, "error", err)
	}

	profile.Avatar = s.codec.DecodeFromRemote(ctx, profile.Avatar)
	if profile.WeeklyPlan != nil {
		plan := s.decodePlan(ctx, *profile.WeeklyPlan)
		profile.WeeklyPlan = &plan
	}

	return &Account{
		Profile:     profile,
		Entitlement: ent,
		Wishlist:    []WishlistItem{},
		Looks:       []GeneratedLook{},
	}, nil
}

// LoadHistory fetches wishlist, looks and the wardrobe analysis in three
// concurrent groups. Designed to run in the background after LoadCore; it
// never fails outright.
func (s *service) LoadHistory(ctx context.Context, ownerID string) History {
	history := History{Wishlist: []WishlistItem{}, Looks: []GeneratedLook{}}
	if ownerID == "" {
		return history
	}

	var (
		waItems    []AnalysisItem
		waOutfits  []AnalysisOutfit
		summary    AnalysisSummary
		hasSummary bool

		itemsErr, outfitsErr, summaryErr error
	)

	// Plain errgroup, no shared cancellation: the groups are independent and
	// one failure must not suppress the others.
	var g errgroup.Group

	g.Go(func() error {
		itemsErr = s.withTimeout(ctx, func(ctx context.Context) error {
			records, err := s.repo.ListWardrobeItems(ctx, ownerID)
			if err != nil {
				return err
			}
			for _, rec := range records {
				switch rec.Origin {
				case OriginWishlist:
					history.Wishlist = append(history.Wishlist, WishlistItem{
						ID:           rec.ID,
						Name:         rec.Name,
						Price:        rec.Price,
						Link:         rec.Link,
						ImageKeyword: rec.ImageKeyword,
						Timestamp:    rec.Timestamp,
					})
				case OriginPDFAnalysis:
					waItems = append(waItems, AnalysisItem{
						Name:     rec.Name,
						Color:    rec.Color,
						Fit:      rec.Fit,
						Category: rec.Category,
						Pattern:  rec.Pattern,
					})
				}
			}
			return nil
		})
		return nil
	})

	g.Go(func() error {
		outfitsErr = s.withTimeout(ctx, func(ctx context.Context) error {
			records, err := s.repo.ListOutfits(ctx, ownerID)
			if err != nil {
				return err
			}
			for _, rec := range records {
				switch rec.Type {
				case TypeGeneratedLook:
					history.Looks = append(history.Looks, GeneratedLook{
						ID:          rec.DocID,
						Image:       s.codec.DecodeFromRemote(ctx, rec.Image),
						Description: rec.Description,
						Timestamp:   rec.Timestamp,
					})
				case TypeWardrobeLook:
					waOutfits = append(waOutfits, AnalysisOutfit{
						ID:             OutfitNumericID(rec.DocID),
						Top:            rec.Top,
						Bottom:         rec.Bottom,
						Style:          rec.Style,
						Reasoning:      rec.Reasoning,
						Rating:         rec.Rating,
						UpgradeTip:     rec.UpgradeTip,
						VisualPrompt:   rec.VisualPrompt,
						GeneratedImage: s.codec.DecodeFromRemote(ctx, rec.Image),
					})
				}
			}
			sort.Slice(history.Looks, func(i, j int) bool {
				return history.Looks[i].Timestamp > history.Looks[j].Timestamp
			})
			sort.Slice(waOutfits, func(i, j int) bool {
				return waOutfits[i].ID < waOutfits[j].ID
			})
			return nil
		})
		return nil
	})

	g.Go(func() error {
		summaryErr = s.withTimeout(ctx, func(ctx context.Context) error {
			loaded, err := s.repo.GetAnalysisSummary(ctx, ownerID)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			summary = loaded
			hasSummary = true
			return nil
		})
		return nil
	})

	_ = g.Wait()

	if itemsErr != nil {
		s.logger.Warn("history items fetch failed", "owner", ownerID, "error", itemsErr)
		history.Failures = append(history.Failures, SliceFailure{Slice: SliceWishlist, Err: itemsErr})
	}
	if outfitsErr != nil {
		s.logger.Warn("history outfits fetch failed", "owner", ownerID, "error", outfitsErr)
		history.Failures = append(history.Failures, SliceFailure{Slice: SliceLooks, Err: outfitsErr})
	}
	if summaryErr != nil {
		s.logger.Warn("history analysis fetch failed", "owner", ownerID, "error", summaryErr)
		history.Failures = append(history.Failures, SliceFailure{Slice: SliceAnalysis, Err: summaryErr})
	}

	// The analysis only surfaces when its metadata document exists; orphaned
	// item/outfit documents stay invisible until the next full save.
	if hasSummary {
		history.Analysis = &WardrobeAnalysis{
			Summary:      summary.Summary,
			ColorPalette: summary.ColorPalette,
			Health:       summary.Health,
			ColorProfile: summary.ColorProfile,
			Items:        waItems,
			Outfits:      waOutfits,
		}
	}

	return history
}

// AddWishlistItem persists one item after checking the owner has no existing
// item with the same purchase link. The check happens before any write.
func (s *service) AddWishlistItem(ctx context.Context, ownerID string, item WishlistItem) (WishlistItem, error) {
	if ownerID == "" {
		return WishlistItem{}, errors.New("missing owner id")
	}
	if item.Link == "" {
		return WishlistItem{}, errors.New("missing item link")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Timestamp == 0 {
		item.Timestamp = time.Now().UnixMilli()
	}

	err := s.withTimeout(ctx, func(ctx context.Context) error {
		records, err := s.repo.ListWardrobeItems(ctx, ownerID)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if rec.Origin == OriginWishlist && rec.Link == item.Link {
				return ErrDuplicateWishlistLink
			}
		}
		return s.repo.SaveWishlist(ctx, ownerID, []WishlistItem{item})
	})
	if err != nil {
		return WishlistItem{}, err
	}
	return item, nil
}

func (s *service) RemoveWishlistItem(ctx context.Context, ownerID, itemID string) error {
	if ownerID == "" || itemID == "" {
		return errors.New("missing identifiers")
	}
	return s.withTimeout(ctx, func(ctx context.Context) error {
		return s.repo.DeleteWishlistItem(ctx, ownerID, itemID)
	})
}

// SaveWeeklyPlan patches the plan into the profile document. Treated as
// critical: the user explicitly asked for it to be saved.
func (s *service) SaveWeeklyPlan(ctx context.Context, ownerID string, plan WeeklyPlan) error {
	if ownerID == "" {
		return errors.New("missing owner id")
	}
	if err := plan.Validate(); err != nil {
		return err
	}
	encoded := s.encodePlan(ctx, plan)
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.repo.SaveWeeklyPlan(ctx, ownerID, encoded)
	}); err != nil {
		return errors.Join(ErrCriticalSave, err)
	}
	return nil
}

// DeleteWardrobeAnalysis removes the analysis and every document derived from
// it. Unlike saves, a failure here is propagated: orphaned records are worse
// than a retry prompt.
func (s *service) DeleteWardrobeAnalysis(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return errors.New("missing owner id")
	}
	if err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.repo.DeleteAnalysis(ctx, ownerID)
	}); err != nil {
		return errors.Join(ErrDeletionFailed, err)
	}
	return nil
}

func (s *service) encodePlan(ctx context.Context, plan WeeklyPlan) WeeklyPlan {
	days := make([]PlanDay, len(plan.Days))
	for i, day := range plan.Days {
		day.Image = s.codec.EncodeForRemote(ctx, day.Image)
		days[i] = day
	}
	plan.Days = days
	return plan
}

func (s *service) decodePlan(ctx context.Context, plan WeeklyPlan) WeeklyPlan {
	days := make([]PlanDay, len(plan.Days))
	for i, day := range plan.Days {
		day.Image = s.codec.DecodeFromRemote(ctx, day.Image)
		days[i] = day
	}
	plan.Days = days
	return plan
}

func (s *service) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}
