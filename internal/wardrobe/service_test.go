package wardrobe

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/trykaro/wardrobe-service/internal/blobstore"
	"github.com/trykaro/wardrobe-service/internal/imageref"
)

// stubRepo delegates to a real memory repository, counts calls, and lets a
// test override individual methods to force failures.
type stubRepo struct {
	Repository

	mu    sync.Mutex
	calls map[string]int

	saveCoreFn       func(context.Context, string, Profile, Entitlement) error
	saveWishlistFn   func(context.Context, string, []WishlistItem) error
	saveLooksFn      func(context.Context, string, []GeneratedLook) error
	saveAnalysisFn   func(context.Context, string, WardrobeAnalysis) error
	getEntitlementFn func(context.Context, string) (Entitlement, error)
	listOutfitsFn    func(context.Context, string) ([]OutfitRecord, error)
}

func newStubRepo() *stubRepo {
	return &stubRepo{Repository: NewMemoryRepository(), calls: map[string]int{}}
}

func (s *stubRepo) record(name string) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
}

func (s *stubRepo) callCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubRepo) SaveCore(ctx context.Context, ownerID string, p Profile, e Entitlement) error {
	s.record("SaveCore")
	if s.saveCoreFn != nil {
		return s.saveCoreFn(ctx, ownerID, p, e)
	}
	return s.Repository.SaveCore(ctx, ownerID, p, e)
}

func (s *stubRepo) SaveWishlist(ctx context.Context, ownerID string, items []WishlistItem) error {
	s.record("SaveWishlist")
	if s.saveWishlistFn != nil {
		return s.saveWishlistFn(ctx, ownerID, items)
	}
	return s.Repository.SaveWishlist(ctx, ownerID, items)
}

func (s *stubRepo) SaveLooks(ctx context.Context, ownerID string, looks []GeneratedLook) error {
	s.record("SaveLooks")
	if s.saveLooksFn != nil {
		return s.saveLooksFn(ctx, ownerID, looks)
	}
	return s.Repository.SaveLooks(ctx, ownerID, looks)
}

func (s *stubRepo) SaveAnalysis(ctx context.Context, ownerID string, analysis WardrobeAnalysis) error {
	s.record("SaveAnalysis")
	if s.saveAnalysisFn != nil {
		return s.saveAnalysisFn(ctx, ownerID, analysis)
	}
	return s.Repository.SaveAnalysis(ctx, ownerID, analysis)
}

func (s *stubRepo) GetEntitlement(ctx context.Context, ownerID string) (Entitlement, error) {
	s.record("GetEntitlement")
	if s.getEntitlementFn != nil {
		return s.getEntitlementFn(ctx, ownerID)
	}
	return s.Repository.GetEntitlement(ctx, ownerID)
}

func (s *stubRepo) ListWardrobeItems(ctx context.Context, ownerID string) ([]WardrobeItemRecord, error) {
	s.record("ListWardrobeItems")
	return s.Repository.ListWardrobeItems(ctx, ownerID)
}

func (s *stubRepo) ListOutfits(ctx context.Context, ownerID string) ([]OutfitRecord, error) {
	s.record("ListOutfits")
	if s.listOutfitsFn != nil {
		return s.listOutfitsFn(ctx, ownerID)
	}
	return s.Repository.ListOutfits(ctx, ownerID)
}

func (s *stubRepo) GetAnalysisSummary(ctx context.Context, ownerID string) (AnalysisSummary, error) {
	s.record("GetAnalysisSummary")
	return s.Repository.GetAnalysisSummary(ctx, ownerID)
}

func newTestService(repo Repository) Service {
	codec := imageref.NewCodec(blobstore.NewMemoryStore(), 0, nil)
	return NewService(repo, codec, nil)
}

func testAccount() Account {
	return Account{
		Profile:     Profile{Name: "Asha", City: "Pune", SkinTone: 12},
		Entitlement: Entitlement{PlanType: PlanTier99, PriceTier: 99, TryOnLimit: 30, HasPremiumFeatures: true},
	}
}

func sampleAnalysis(outfitIDs ...int) WardrobeAnalysis {
	analysis := WardrobeAnalysis{
		Summary:      "versatile capsule",
		ColorPalette: []string{"navy", "cream"},
		Health:       WardrobeHealth{Score: 72, Verdict: "solid basics", MissingEssentials: []string{"blazer"}},
		ColorProfile: ColorProfile{Undertone: "warm", Season: "autumn", BestColors: []string{"rust"}},
		Items: []AnalysisItem{
			{Name: "white shirt", Color: "white", Fit: "regular", Category: "top"},
			{Name: "dark jeans", Color: "indigo", Fit: "slim", Category: "bottom"},
		},
	}
	for _, id := range outfitIDs {
		analysis.Outfits = append(analysis.Outfits, AnalysisOutfit{
			ID: id, Top: "white shirt", Bottom: "dark jeans", Style: "casual", Rating: 8,
		})
	}
	return analysis
}

func TestSaveCriticalFailureAbortsEverything(t *testing.T) {
	repo := newStubRepo()
	repo.saveCoreFn = func(context.Context, string, Profile, Entitlement) error {
		return errors.New("quota exceeded")
	}
	svc := newTestService(repo)

	acct := testAccount()
	acct.Wishlist = []WishlistItem{{ID: "w1", Link: "https://shop.example/a", Name: "scarf"}}

	_, err := svc.Save(context.Background(), "u1", acct)
	if !errors.Is(err, ErrCriticalSave) {
		t.Fatalf("err = %v, want ErrCriticalSave", err)
	}
	if repo.callCount("SaveWishlist") != 0 {
		t.Fatal("best-effort phase ran after critical failure")
	}
}

func TestSavePartialFailureIsolation(t *testing.T) {
	repo := newStubRepo()
	repo.saveWishlistFn = func(context.Context, string, []WishlistItem) error {
		return errors.New("batch rejected")
	}
	svc := newTestService(repo)

	acct := testAccount()
	acct.Wishlist = []WishlistItem{{ID: "w1", Link: "https://shop.example/a", Name: "scarf"}}

	result, err := svc.Save(context.Background(), "u1", acct)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !result.Partial() {
		t.Fatal("expected a partial result")
	}
	if len(result.Failures) != 1 || result.Failures[0].Slice != SliceWishlist {
		t.Fatalf("failures = %+v", result.Failures)
	}

	// The critical batch still committed.
	core, err := svc.LoadCore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("LoadCore: %v", err)
	}
	if core == nil {
		t.Fatal("core profile missing after partial save")
	}
	if core.Entitlement.PlanType != PlanTier99 || !core.Entitlement.HasPremiumFeatures {
		t.Fatalf("entitlement = %+v", core.Entitlement)
	}
}

func TestLoadCoreUnknownOwnerReturnsNil(t *testing.T) {
	svc := newTestService(newStubRepo())
	core, err := svc.LoadCore(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("LoadCore: %v", err)
	}
	if core != nil {
		t.Fatalf("core = %+v, want nil", core)
	}
}

func TestLoadCoreSynthesizesDefaultEntitlement(t *testing.T) {
	repo := newStubRepo()
	repo.getEntitlementFn = func(context.Context, string) (Entitlement, error) {
		return Entitlement{}, ErrNotFound
	}
	svc := newTestService(repo)

	if _, err := svc.Save(context.Background(), "u1", testAccount()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	core, err := svc.LoadCore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("LoadCore: %v", err)
	}
	if core == nil {
		t.Fatal("core is nil")
	}
	ent := core.Entitlement
	if ent.PlanType != PlanFree || ent.Tokens != 50 || ent.TryOnLimit != 2 || ent.TryOnUsed != 0 || ent.HasPremiumFeatures {
		t.Fatalf("entitlement = %+v, want defaults", ent)
	}
}

func TestLoadCoreSkipsHistoryCollections(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)

	if _, err := svc.Save(context.Background(), "u1", testAccount()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	core, err := svc.LoadCore(context.Background(), "u1")
	if err != nil {
		t.Fatalf("LoadCore: %v", err)
	}
	if core == nil {
		t.Fatal("core is nil")
	}
	if len(core.Wishlist) != 0 || len(core.Looks) != 0 || core.Analysis != nil {
		t.Fatalf("core carries history content: %+v", core)
	}
	for _, name := range []string{"ListWardrobeItems", "ListOutfits", "GetAnalysisSummary"} {
		if n := repo.callCount(name); n != 0 {
			t.Errorf("%s called %d times during LoadCore", name, n)
		}
	}
}

func TestSaveAndLoadHistoryRoundTrip(t *testing.T) {
	store := blobstore.NewMemoryStore()
	codec := imageref.NewCodec(store, 0, nil)
	repo := newStubRepo()
	svc := NewService(repo, codec, nil)
	ctx := context.Background()

	rawImage := "data:image/png;base64,AAAA"
	acct := testAccount()
	acct.Wishlist = []WishlistItem{
		{ID: "w1", Name: "scarf", Price: "₹499", Link: "https://shop.example/a", Timestamp: 100},
	}
	acct.Looks = []GeneratedLook{
		{ID: "l1", Image: imageref.Inline(rawImage), Description: "summer look", Timestamp: 200},
		{ID: "l2", Image: imageref.Remote("https://cdn.example.com/l2.png"), Description: "office look", Timestamp: 300},
	}
	acct = acct.WithAnalysis(sampleAnalysis(2, 1))

	result, err := svc.Save(ctx, "u1", acct)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if result.Partial() {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}

	history := svc.LoadHistory(ctx, "u1")
	if len(history.Failures) != 0 {
		t.Fatalf("history failures: %+v", history.Failures)
	}

	if len(history.Wishlist) != 1 || history.Wishlist[0].Link != "https://shop.example/a" {
		t.Fatalf("wishlist = %+v", history.Wishlist)
	}

	if len(history.Looks) != 2 {
		t.Fatalf("looks = %+v", history.Looks)
	}
	// Sorted by timestamp descending.
	if history.Looks[0].ID != "l2" || history.Looks[1].ID != "l1" {
		t.Fatalf("looks order = %s, %s", history.Looks[0].ID, history.Looks[1].ID)
	}
	// The inline image round-trips byte-equal through the blob store.
	if got := history.Looks[1].Image.Value(); got != rawImage {
		t.Fatalf("look image = %q, want %q", got, rawImage)
	}

	if history.Analysis == nil {
		t.Fatal("analysis missing")
	}
	if history.Analysis.Summary != "versatile capsule" {
		t.Fatalf("summary = %q", history.Analysis.Summary)
	}
	if len(history.Analysis.Items) != 2 {
		t.Fatalf("analysis items = %+v", history.Analysis.Items)
	}
	// Outfits sorted by numeric id ascending.
	if len(history.Analysis.Outfits) != 2 ||
		history.Analysis.Outfits[0].ID != 1 || history.Analysis.Outfits[1].ID != 2 {
		t.Fatalf("outfits = %+v", history.Analysis.Outfits)
	}
}

func TestLoadHistoryGroupFailureDoesNotSuppressOthers(t *testing.T) {
	repo := newStubRepo()
	repo.listOutfitsFn = func(context.Context, string) ([]OutfitRecord, error) {
		return nil, errors.New("deadline exceeded")
	}
	svc := newTestService(repo)
	ctx := context.Background()

	acct := testAccount()
	acct.Wishlist = []WishlistItem{{ID: "w1", Link: "https://shop.example/a", Timestamp: 1}}
	if _, err := svc.Save(ctx, "u1", acct); err != nil {
		t.Fatalf("Save: %v", err)
	}

	history := svc.LoadHistory(ctx, "u1")
	if len(history.Wishlist) != 1 {
		t.Fatalf("wishlist = %+v", history.Wishlist)
	}
	if len(history.Failures) != 1 || history.Failures[0].Slice != SliceLooks {
		t.Fatalf("failures = %+v", history.Failures)
	}
}

func TestAddWishlistItemRejectsDuplicateLinkBeforeWrite(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.AddWishlistItem(ctx, "u1", WishlistItem{Name: "scarf", Link: "https://shop.example/a"}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	writes := repo.callCount("SaveWishlist")

	_, err := svc.AddWishlistItem(ctx, "u1", WishlistItem{Name: "same scarf", Link: "https://shop.example/a"})
	if !errors.Is(err, ErrDuplicateWishlistLink) {
		t.Fatalf("err = %v, want ErrDuplicateWishlistLink", err)
	}
	if repo.callCount("SaveWishlist") != writes {
		t.Fatal("a write was issued for the duplicate item")
	}
}

func TestDeleteWardrobeAnalysisCascade(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	analysis := sampleAnalysis(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	analysis.Items = make([]AnalysisItem, 5)
	for i := range analysis.Items {
		analysis.Items[i] = AnalysisItem{Name: "item", Category: "top"}
	}

	acct := testAccount().WithAnalysis(analysis)
	acct.Wishlist = []WishlistItem{{ID: "w1", Link: "https://shop.example/a", Timestamp: 1}}
	acct.Looks = []GeneratedLook{{ID: "l1", Description: "kept look", Timestamp: 2}}

	if _, err := svc.Save(ctx, "u2", acct); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := svc.DeleteWardrobeAnalysis(ctx, "u2"); err != nil {
		t.Fatalf("DeleteWardrobeAnalysis: %v", err)
	}

	history := svc.LoadHistory(ctx, "u2")
	if history.Analysis != nil {
		t.Fatalf("analysis survived deletion: %+v", history.Analysis)
	}
	items, _ := repo.Repository.ListWardrobeItems(ctx, "u2")
	for _, rec := range items {
		if rec.Origin == OriginPDFAnalysis {
			t.Fatalf("analysis item survived: %+v", rec)
		}
	}
	outfits, _ := repo.Repository.ListOutfits(ctx, "u2")
	for _, rec := range outfits {
		if rec.Type == TypeWardrobeLook {
			t.Fatalf("wardrobe look survived: %+v", rec)
		}
	}

	// Wishlist and generated looks are untouched.
	if len(history.Wishlist) != 1 || len(history.Looks) != 1 {
		t.Fatalf("wishlist/looks affected by cascade: %+v", history)
	}
}

func TestAnalysisReplacementAfterDeleteLeavesNoStaleOutfits(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	first := testAccount().WithAnalysis(sampleAnalysis(1, 2, 3))
	if _, err := svc.Save(ctx, "u1", first); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := svc.DeleteWardrobeAnalysis(ctx, "u1"); err != nil {
		t.Fatalf("DeleteWardrobeAnalysis: %v", err)
	}

	second := testAccount().WithAnalysis(sampleAnalysis(1, 2))
	if _, err := svc.Save(ctx, "u1", second); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	history := svc.LoadHistory(ctx, "u1")
	if history.Analysis == nil {
		t.Fatal("analysis missing")
	}
	if len(history.Analysis.Outfits) != 2 {
		t.Fatalf("stale outfits resurrected: %+v", history.Analysis.Outfits)
	}
}

func TestDeleteFailurePropagates(t *testing.T) {
	repo := newStubRepo()
	failing := &failingDeleteRepo{Repository: repo}
	svc := newTestService(failing)

	err := svc.DeleteWardrobeAnalysis(context.Background(), "u1")
	if !errors.Is(err, ErrDeletionFailed) {
		t.Fatalf("err = %v, want ErrDeletionFailed", err)
	}
}

type failingDeleteRepo struct {
	Repository
}

func (f *failingDeleteRepo) DeleteAnalysis(context.Context, string) error {
	return errors.New("permission denied")
}

func TestSaveWeeklyPlanPatchesProfile(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Save(ctx, "u1", testAccount()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	plan := WeeklyPlan{
		Days:         []PlanDay{{Day: "Mon", OutfitID: "l1", OutfitName: "summer look"}},
		ReminderTime: "08:00",
	}
	if err := svc.SaveWeeklyPlan(ctx, "u1", plan); err != nil {
		t.Fatalf("SaveWeeklyPlan: %v", err)
	}

	core, err := svc.LoadCore(ctx, "u1")
	if err != nil || core == nil {
		t.Fatalf("LoadCore: %v, %v", core, err)
	}
	if core.Profile.WeeklyPlan == nil || core.Profile.WeeklyPlan.ReminderTime != "08:00" {
		t.Fatalf("weekly plan = %+v", core.Profile.WeeklyPlan)
	}
	if core.Profile.Name != "Asha" {
		t.Fatal("plan save clobbered profile fields")
	}
}
