package lang

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		fallback Language
		want     Language
	}{
		{"latin text uses fallback", "hello there", English, English},
		{"arabic script", "مرحبا", English, Arabic},
		{"mixed picks arabic", "hi مرحبا", English, Arabic},
		{"digits only", "12345", Arabic, Arabic},
		{"invalid fallback", "hello", Unset, English},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text, tt.fallback); got != tt.want {
				t.Fatalf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if l, ok := Parse(" English "); !ok || l != English {
		t.Fatalf("Parse english = %q,%v", l, ok)
	}
	if l, ok := Parse("العربية"); !ok || l != Arabic {
		t.Fatalf("Parse arabic = %q,%v", l, ok)
	}
	if _, ok := Parse("french"); ok {
		t.Fatal("expected french to be rejected")
	}
}

func TestTextGetFallsBackToEnglish(t *testing.T) {
	txt := T("Hello", "")
	if got := txt.Get(Arabic); got != "Hello" {
		t.Fatalf("Get(ar) = %q", got)
	}
	if got := T("Hello", "مرحبا").Get(Arabic); got != "مرحبا" {
		t.Fatalf("Get(ar) = %q", got)
	}
}
