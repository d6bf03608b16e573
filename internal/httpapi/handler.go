package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/trykaro/wardrobe-service/internal/auth"
	"github.com/trykaro/wardrobe-service/internal/imageref"
	"github.com/trykaro/wardrobe-service/internal/synthesis"
	"github.com/trykaro/wardrobe-service/internal/wardrobe"
)

const (
	serviceTimeout   = 15 * time.Second
	synthesisTimeout = 90 * time.Second // generation calls are slow
	maxBodyBytes     = 32 << 20         // inline images travel base64-encoded in the body
)

// RegisterRoutes registers all wardrobe routes.
func RegisterRoutes(r chi.Router, service wardrobe.Service, synth synthesis.Service, logger *slog.Logger) {
	r.Route("/v1/profile", func(r chi.Router) {
		r.Use(middleware.Recoverer)

		r.Get("/", getProfile(service, logger))
		r.Put("/", saveProfile(service, logger))
		r.Get("/history", getHistory(service, logger))
		r.Put("/plan", saveWeeklyPlan(service, logger))
	})

	r.Route("/v1/wishlist", func(r chi.Router) {
		r.Use(middleware.Recoverer)

		r.Post("/items", addWishlistItem(service, logger))
		r.Delete("/items/{id}", removeWishlistItem(service, logger))
	})

	r.Route("/v1/wardrobe", func(r chi.Router) {
		r.Use(middleware.Recoverer)

		r.Post("/analyze", analyzeWardrobe(service, synth, logger))
		r.Delete("/analysis", deleteAnalysis(service, logger))
	})

	r.Route("/v1/tryon", func(r chi.Router) {
		r.Use(middleware.Recoverer)
		r.Post("/", generateTryOn(service, synth, logger))
	})
}

func getProfile(service wardrobe.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		acct, err := service.LoadCore(ctx, identity.UserID)
		if err != nil {
			logRequestError(r.Context(), logger, "failed to load profile", err, identity.UserID)
			writeError(w, http.StatusInternalServerError, "failed to load profile")
			return
		}
		if acct == nil {
			writeError(w, http.StatusNotFound, "no profile yet")
			return
		}
		writeJSON(w, http.StatusOK, acct)
	}
}

func getHistory(service wardrobe.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		// LoadHistory degrades per slice instead of failing; partial results
		// carry a failures list the client can use to retry.
		writeJSON(w, http.StatusOK, service.LoadHistory(ctx, identity.UserID))
	}
}

func saveProfile(service wardrobe.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		var acct wardrobe.Account
		if err := json.NewDecoder(r.Body).Decode(&acct); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		result, err := service.Save(ctx, identity.UserID, acct)
		if err != nil {
			logRequestError(r.Context(), logger, "failed to save profile", err, identity.UserID)
			writeError(w, http.StatusBadGateway, "failed to save profile")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func saveWeeklyPlan(service wardrobe.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		var plan wardrobe.WeeklyPlan
		if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		if err := service.SaveWeeklyPlan(ctx, identity.UserID, plan); err != nil {
			if errors.Is(err, wardrobe.ErrCriticalSave) {
				logRequestError(r.Context(), logger, "failed to save weekly plan", err, identity.UserID)
				writeError(w, http.StatusBadGateway, "failed to save weekly plan")
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func addWishlistItem(service wardrobe.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}

		var item wardrobe.WishlistItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if item.Link == "" {
			writeError(w, http.StatusBadRequest, "missing item link")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		saved, err := service.AddWishlistItem(ctx, identity.UserID, item)
		if err != nil {
			if errors.Is(err, wardrobe.ErrDuplicateWishlistLink) {
				writeError(w, http.StatusConflict, "item already in wishlist")
				return
			}
			logRequestError(r.Context(), logger, "failed to add wishlist item", err, identity.UserID)
			writeError(w, http.StatusInternalServerError, "failed to add wishlist item")
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func removeWishlistItem(service wardrobe.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		itemID := chi.URLParam(r, "id")
		if itemID == "" {
			writeError(w, http.StatusBadRequest, "missing item id")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		if err := service.RemoveWishlistItem(ctx, identity.UserID, itemID); err != nil {
			if errors.Is(err, wardrobe.ErrNotFound) {
				writeError(w, http.StatusNotFound, "item not found")
				return
			}
			logRequestError(r.Context(), logger, "failed to remove wishlist item", err, identity.UserID)
			writeError(w, http.StatusInternalServerError, "failed to remove wishlist item")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func deleteAnalysis(service wardrobe.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		if err := service.DeleteWardrobeAnalysis(ctx, identity.UserID); err != nil {
			logRequestError(r.Context(), logger, "failed to delete wardrobe analysis", err, identity.UserID)
			writeError(w, http.StatusBadGateway, "failed to delete wardrobe analysis")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func generateTryOn(service wardrobe.Service, synth synthesis.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		if synth == nil {
			writeError(w, http.StatusServiceUnavailable, "image generation is not configured")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		defer r.Body.Close()

		var body struct {
			PersonImage    imageref.Ref   `json:"personImage"`
			ClothingImages []imageref.Ref `json:"clothingImages"`
			PersonDetails  string         `json:"personDetails"`
			Save           bool           `json:"save"`
			Description    string         `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.PersonImage.IsZero() || len(body.ClothingImages) == 0 {
			writeError(w, http.StatusBadRequest, "person and clothing images are required")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), synthesisTimeout)
		defer cancel()

		image, err := synth.GenerateTryOn(ctx, synthesis.TryOnRequest{
			PersonImage:    body.PersonImage,
			ClothingImages: body.ClothingImages,
			PersonDetails:  body.PersonDetails,
		})
		if err != nil {
			logRequestError(r.Context(), logger, "failed to generate try-on", err, identity.UserID)
			writeError(w, http.StatusBadGateway, "failed to generate try-on")
			return
		}

		look := wardrobe.GeneratedLook{
			ID:          uuid.New().String(),
			Image:       image,
			Description: body.Description,
			Timestamp:   time.Now().UnixMilli(),
		}

		saved := false
		if body.Save {
			saved = persistLook(ctx, service, logger, identity.UserID, look)
		}
		writeJSON(w, http.StatusOK, map[string]any{"look": look, "saved": saved})
	}
}

// persistLook appends the look to the account via a full save. Best-effort:
// the generated image is already in the response, so a failed save only means
// the gallery copy is missing.
func persistLook(ctx context.Context, service wardrobe.Service, logger *slog.Logger, ownerID string, look wardrobe.GeneratedLook) bool {
	acct, err := service.LoadCore(ctx, ownerID)
	if err != nil || acct == nil {
		logRequestError(ctx, logger, "failed to load account for look save", err, ownerID)
		return false
	}
	history := service.LoadHistory(ctx, ownerID)
	acct.Looks = history.Looks

	result, err := service.Save(ctx, ownerID, acct.WithLook(look))
	if err != nil {
		logRequestError(ctx, logger, "failed to save generated look", err, ownerID)
		return false
	}
	for _, f := range result.Failures {
		if f.Slice == wardrobe.SliceLooks {
			return false
		}
	}
	return true
}

func analyzeWardrobe(service wardrobe.Service, synth synthesis.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing identity")
			return
		}
		if synth == nil {
			writeError(w, http.StatusServiceUnavailable, "wardrobe analysis is not configured")
			return
		}

		var body struct {
			WardrobeText string `json:"wardrobeText"`
			Gender       string `json:"gender"`
			Style        string `json:"style"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.WardrobeText == "" {
			writeError(w, http.StatusBadRequest, "missing wardrobe text")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), synthesisTimeout)
		defer cancel()

		analysis, err := synth.AnalyzeWardrobe(ctx, synthesis.AnalysisRequest{
			WardrobeText: body.WardrobeText,
			Gender:       body.Gender,
			Style:        body.Style,
		})
		if err != nil {
			logRequestError(r.Context(), logger, "failed to analyze wardrobe", err, identity.UserID)
			writeError(w, http.StatusBadGateway, "failed to analyze wardrobe")
			return
		}

		saved := persistAnalysis(ctx, service, logger, identity.UserID, analysis)
		writeJSON(w, http.StatusOK, map[string]any{"analysis": analysis, "saved": saved})
	}
}

// persistAnalysis replaces the live analysis via a full save. The analysis is
// returned to the client either way, so persistence failures degrade rather
// than fail the request.
func persistAnalysis(ctx context.Context, service wardrobe.Service, logger *slog.Logger, ownerID string, analysis wardrobe.WardrobeAnalysis) bool {
	acct, err := service.LoadCore(ctx, ownerID)
	if err != nil || acct == nil {
		logRequestError(ctx, logger, "failed to load account for analysis save", err, ownerID)
		return false
	}

	result, err := service.Save(ctx, ownerID, acct.WithAnalysis(analysis))
	if err != nil {
		logRequestError(ctx, logger, "failed to save wardrobe analysis", err, ownerID)
		return false
	}
	for _, f := range result.Failures {
		if f.Slice == wardrobe.SliceAnalysis {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func logRequestError(ctx context.Context, logger *slog.Logger, message string, err error, userID string) {
	if logger == nil || err == nil {
		return
	}
	attrs := []any{
		slog.String("userId", userID),
		slog.Any("error", err),
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		attrs = append(attrs, slog.String("requestId", reqID))
	}
	logger.Error(message, attrs...)
}
