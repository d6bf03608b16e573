package imageref

import (
	"context"
	"strings"
	"testing"

	"github.com/trykaro/wardrobe-service/internal/blobstore"
)

type unavailableStore struct{}

func (unavailableStore) Put(context.Context, []byte) (string, error) {
	return "", blobstore.ErrUnavailable
}
func (unavailableStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, blobstore.ErrUnavailable
}
func (unavailableStore) Delete(context.Context, string) error { return nil }

func TestParseClassification(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"", KindNone},
		{"https://cdn.example.com/look.png", KindRemote},
		{"http://example.com/a.jpg", KindRemote},
		{"img_8b1f9c2e", KindLocalBlob},
		{"data:image/png;base64,iVBORw0KGgo=", KindInline},
	}
	for _, tc := range cases {
		if got := Parse(tc.in).Kind(); got != tc.want {
			t.Errorf("Parse(%q).Kind() = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestEncodeStoresInlineData(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	codec := NewCodec(store, 0, nil)

	raw := Inline("data:image/png;base64,AAAA")
	encoded := codec.EncodeForRemote(ctx, raw)

	if encoded.Kind() != KindLocalBlob {
		t.Fatalf("encoded kind = %v, want KindLocalBlob", encoded.Kind())
	}
	if !strings.HasPrefix(encoded.Value(), blobstore.IDPrefix) {
		t.Fatalf("encoded value %q missing blob id prefix", encoded.Value())
	}
}

func TestEncodeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	codec := NewCodec(blobstore.NewMemoryStore(), 0, nil)

	for _, ref := range []Ref{
		None(),
		Remote("https://cdn.example.com/look.png"),
		Inline("data:image/png;base64,AAAA"),
	} {
		once := codec.EncodeForRemote(ctx, ref)
		twice := codec.EncodeForRemote(ctx, once)
		if once != twice {
			t.Errorf("EncodeForRemote not idempotent: %v != %v", once, twice)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	codec := NewCodec(blobstore.NewMemoryStore(), 0, nil)

	raw := Inline("data:image/jpeg;base64,/9j/4AAQ")
	decoded := codec.DecodeFromRemote(ctx, codec.EncodeForRemote(ctx, raw))

	if decoded != raw {
		t.Fatalf("round trip: got %v, want %v", decoded, raw)
	}
}

func TestDecodeMissingBlobReturnsIDUnchanged(t *testing.T) {
	ctx := context.Background()
	codec := NewCodec(blobstore.NewMemoryStore(), 0, nil)

	ref := LocalBlob("img_not_on_this_device")
	if got := codec.DecodeFromRemote(ctx, ref); got != ref {
		t.Fatalf("got %v, want unchanged %v", got, ref)
	}
}

func TestEncodeUnavailableStorePassesThrough(t *testing.T) {
	ctx := context.Background()
	codec := NewCodec(unavailableStore{}, 0, nil)

	raw := Inline("data:image/png;base64,AAAA")
	if got := codec.EncodeForRemote(ctx, raw); got != raw {
		t.Fatalf("got %v, want pass-through %v", got, raw)
	}
}

func TestEncodeOversizedValueDegradesToNone(t *testing.T) {
	ctx := context.Background()
	codec := NewCodec(unavailableStore{}, 16, nil)

	raw := Inline("data:image/png;base64," + strings.Repeat("A", 64))
	if got := codec.EncodeForRemote(ctx, raw); !got.IsZero() {
		t.Fatalf("got %v, want None", got)
	}
}

func TestRefJSON(t *testing.T) {
	type payload struct {
		Image Ref `json:"image"`
	}

	var p payload
	if err := p.Image.UnmarshalJSON([]byte(`"https://cdn.example.com/a.png"`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if p.Image.Kind() != KindRemote {
		t.Fatalf("kind = %v, want KindRemote", p.Image.Kind())
	}

	out, err := p.Image.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(out) != `"https://cdn.example.com/a.png"` {
		t.Fatalf("marshaled %s", out)
	}

	var none Ref
	out, err = none.MarshalJSON()
	if err != nil || string(out) != "null" {
		t.Fatalf("None marshals to %s (%v), want null", out, err)
	}
}
