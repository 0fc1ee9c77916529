package gemini

import (
	"context"
	"testing"

	"github.com/lehigh-university-libraries/partident/internal/providers"
)

func TestExtractText_RequiresAPIKey(t *testing.T) {
	_, err := New("").ExtractText(context.Background(), providers.Config{Model: "gemini-2.5-flash"})
	if err == nil {
		t.Fatal("Expected error when API key is missing")
	}
}

func TestImageFormat(t *testing.T) {
	tests := map[string]string{
		"":     "jpeg",
		"jpg":  "jpeg",
		"JPEG": "jpeg",
		"png":  "png",
		"webp": "webp",
	}
	for in, want := range tests {
		if got := imageFormat(in); got != want {
			t.Errorf("imageFormat(%q) = %s, want %s", in, got, want)
		}
	}
}
