package codes

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, id := range []uint{1, 2, 42, 1000, 123456789} {
		code := Encode(id)
		if code == "" {
			t.Fatalf("empty code for id %d", id)
		}
		got, err := Decode(code)
		if err != nil {
			t.Fatalf("decode %q: %v", code, err)
		}
		if got != id {
			t.Fatalf("round trip: got %d want %d", got, id)
		}
	}
}

func TestEncodeHidesSequentialIDs(t *testing.T) {
	a, b := Encode(1), Encode(2)
	if a == "1" || b == "2" {
		t.Fatalf("codes must not expose raw ids: %q %q", a, b)
	}
	if a == b {
		t.Fatalf("distinct ids must encode differently")
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode("not a code!"); err != ErrMalformedCode {
		t.Fatalf("expected ErrMalformedCode, got %v", err)
	}
	if _, err := Decode(""); err != ErrMalformedCode {
		t.Fatalf("expected ErrMalformedCode for empty input, got %v", err)
	}
}
