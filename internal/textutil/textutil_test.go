package textutil

import (
	"testing"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "only spaces", input: "   ", expected: ""},
		{name: "collapses runs", input: "Smart   TV\t\t55\"", expected: "Smart TV 55\""},
		{name: "non-breaking space", input: "Samsung\u00a0\u00a0Galaxy", expected: "Samsung Galaxy"},
		{name: "zero-width space", input: "iPhone\u200b15", expected: "iPhone 15"},
		{name: "newlines and trim", input: "\n Notebook\r\nLenovo \n", expected: "Notebook Lenovo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeWhitespace(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeWhitespace(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStripAccents(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "spanish accents", input: "Cámara Fotográfica", expected: "Camara Fotografica"},
		{name: "enye", input: "Muñeca Niño", expected: "Muneca Nino"},
		{name: "umlaut", input: "Pingüino", expected: "Pinguino"},
		{name: "plain ascii", input: "Lenovo IdeaPad", expected: "Lenovo IdeaPad"},
		{name: "non latin script passes through", input: "東芝 液晶", expected: "東芝 液晶"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripAccents(tt.input)
			if result != tt.expected {
				t.Errorf("StripAccents(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStripAccentsIsIdempotent(t *testing.T) {
	inputs := []string{"", "Cámara", "ÁÉÍÓÚ áéíóú ñ Ñ ü", "東芝", "é", "Crème brûlée"}
	for _, s := range inputs {
		once := StripAccents(s)
		twice := StripAccents(once)
		if once != twice {
			t.Errorf("StripAccents not idempotent for %q: %q != %q", s, once, twice)
		}
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int64
		wantOK bool
	}{
		{name: "thousands dots", input: "$1.299.990", want: 1299990, wantOK: true},
		{name: "decimal comma is concatenated", input: "$12,50", want: 1250, wantOK: true},
		{name: "zero", input: "$0", want: 0, wantOK: true},
		{name: "spaces and currency code", input: "CLP 49 990", want: 49990, wantOK: true},
		{name: "empty", input: "", wantOK: false},
		{name: "no digits", input: "N/A", wantOK: false},
		{name: "overflow", input: "99999999999999999999999", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParsePrice(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParsePrice(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		a := Fingerprint("falabella", "Apple", "iPhone 15", "A3090")
		b := Fingerprint("falabella", "Apple", "iPhone 15", "A3090")
		if a != b {
			t.Errorf("Fingerprint not stable: %s != %s", a, b)
		}
		if len(a) != 64 {
			t.Errorf("len(Fingerprint) = %d, want 64 hex chars", len(a))
		}
	})

	t.Run("ignores case and accents", func(t *testing.T) {
		a := Fingerprint("ripley", "Lápiz", "Cámara")
		b := Fingerprint("RIPLEY", "lapiz", "camara")
		if a != b {
			t.Errorf("expected case/accent-insensitive fingerprints to match")
		}
	})

	t.Run("order is significant", func(t *testing.T) {
		a := Fingerprint("paris", "Sony", "Bravia")
		b := Fingerprint("paris", "Bravia", "Sony")
		if a == b {
			t.Errorf("expected different fingerprints for different part order")
		}
	})

	t.Run("empty parts are omitted", func(t *testing.T) {
		a := Fingerprint("lider", "", "Televisor", "")
		b := Fingerprint("lider", "Televisor")
		if a != b {
			t.Errorf("expected empty parts to be dropped")
		}
	})

	t.Run("dropped empty parts let neighbours shift", func(t *testing.T) {
		// Digest covers only the non-empty parts, not their positions
		a := Fingerprint("falabella", "", "Galaxy", "S24")
		b := Fingerprint("falabella", "Galaxy", "S24", "")
		if a != b {
			t.Errorf("expected shifted parts to share a digest")
		}
		if c := Fingerprint("falabella", "Galaxy S24", ""); c == a {
			t.Errorf("expected joined name to differ from split parts")
		}
	})

	t.Run("known digest", func(t *testing.T) {
		want := "0eab8a0a3380abf4c7d1fb0b43b66aafbb64a4b953e4eb2dccca579461912d0c" // sha256("a|b")
		if got := Fingerprint("A", " B "); got != want {
			t.Errorf("Fingerprint(A, B) = %s, want %s", got, want)
		}
	})
}

func TestFoldKey(t *testing.T) {
	if got := FoldKey("  Lógitech  g "); got != "LOGITECH G" {
		t.Errorf("FoldKey = %q, want %q", got, "LOGITECH G")
	}
}
