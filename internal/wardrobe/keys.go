package wardrobe

import (
	"fmt"
	"strconv"
	"strings"
)

// Document key builders for the analysis collections. Outfit ids repeat
// across analysis generations, so every key is namespaced by owner; the
// collision rules live here and nowhere else.

// AnalysisDocID returns the metadata document key for an owner. The fixed
// "latest" suffix enforces the single-live-analysis invariant: a new analysis
// always overwrites the same document.
func AnalysisDocID(ownerID string) string {
	return fmt.Sprintf("wa_%s_latest", ownerID)
}

// AnalysisItemDocID keys a classified item by owner and sequential index.
func AnalysisItemDocID(ownerID string, index int) string {
	return fmt.Sprintf("wai_%s_%d", ownerID, index)
}

// AnalysisOutfitDocID keys a suggested outfit by owner and its numeric id
// within the analysis.
func AnalysisOutfitDocID(ownerID string, outfitID int) string {
	return fmt.Sprintf("wao_%s_%d", ownerID, outfitID)
}

// OutfitNumericID recovers the analysis-local outfit id from a document key.
// Returns 0 when the key does not end in a number.
func OutfitNumericID(docID string) int {
	idx := strings.LastIndex(docID, "_")
	if idx < 0 || idx == len(docID)-1 {
		return 0
	}
	n, err := strconv.Atoi(docID[idx+1:])
	if err != nil {
		return 0
	}
	return n
}
