package imageref

import (
	"encoding/json"
	"strings"

	"github.com/trykaro/wardrobe-service/internal/blobstore"
)

// Kind discriminates the three shapes an image value can take.
type Kind uint8

const (
	// KindNone marks an absent image.
	KindNone Kind = iota
	// KindRemote is a URL served by someone else; it crosses the document
	// store boundary as-is.
	KindRemote
	// KindLocalBlob is an identifier issued by the device-local blob store.
	KindLocalBlob
	// KindInline is raw image data (base64 data URI) that must not be
	// written to a remote document.
	KindInline
)

// Ref is an image value classified once at the boundary and carried through
// the system, so nothing downstream re-sniffs string prefixes.
type Ref struct {
	kind  Kind
	value string
}

// None returns the absent image.
func None() Ref { return Ref{} }

// Remote wraps a remote URL.
func Remote(url string) Ref { return Ref{kind: KindRemote, value: url} }

// LocalBlob wraps a blob store identifier.
func LocalBlob(id string) Ref { return Ref{kind: KindLocalBlob, value: id} }

// Inline wraps raw image data.
func Inline(data string) Ref { return Ref{kind: KindInline, value: data} }

// Parse classifies a raw string. Empty strings collapse to None.
func Parse(s string) Ref {
	switch {
	case s == "":
		return None()
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return Remote(s)
	case blobstore.IsID(s):
		return LocalBlob(s)
	default:
		return Inline(s)
	}
}

// Kind returns the discriminator.
func (r Ref) Kind() Kind { return r.kind }

// IsZero reports whether the image is absent.
func (r Ref) IsZero() bool { return r.kind == KindNone }

// Value returns the underlying string: URL, blob id, or inline data.
func (r Ref) Value() string { return r.value }

// StorageValue is the representation written to a remote document field:
// nil for an absent image, the raw string otherwise.
func (r Ref) StorageValue() *string {
	if r.IsZero() {
		return nil
	}
	v := r.value
	return &v
}

// FromStorage rebuilds a Ref from a remote document field.
func FromStorage(v *string) Ref {
	if v == nil {
		return None()
	}
	return Parse(*v)
}

// MarshalJSON encodes the ref as its raw string value, or null when absent.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON classifies the incoming value; this is the one place API
// payloads are shape-checked.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*r = None()
		return nil
	}
	*r = Parse(*s)
	return nil
}
