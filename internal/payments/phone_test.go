package payments

import (
	"testing"

	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"0712345678":       "254712345678",
		"0112345678":       "254112345678",
		"+254712345678":    "254712345678",
		"254 712 345 678":  "254712345678",
		"712-345-678":      "254712345678",
		"(0712) 345678":    "254712345678",
		"  254112345678  ": "254112345678",
	}
	for raw, want := range cases {
		got, err := NormalizePhone(raw)
		if err != nil {
			t.Fatalf("NormalizePhone(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("NormalizePhone(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizePhoneRejects(t *testing.T) {
	for _, raw := range []string{"", "0812345678", "07123456", "+1 415 555 0100", "2547123456789", "07123abc78"} {
		_, err := NormalizePhone(raw)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("NormalizePhone(%q) expected validation error, got %v", raw, err)
		}
	}
}
