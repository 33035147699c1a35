package text

import "testing"

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases", in: "SPAM", want: "spam"},
		{name: "collapses repeats", in: "heeello", want: "helo"},
		{name: "strips punctuation", in: "Sp.a.m!", want: "spam"},
		{name: "strips underscore", in: "sp_am", want: "spam"},
		{name: "keeps digits", in: "a1b2", want: "a1b2"},
		{name: "keeps persian letters", in: "کلمه‌ی بد", want: "کلمهیبد"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(tt.in)
			if got != tt.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{"heeello", "Sp.a.m", "کلمه بد", "www.exaample.com", "a__b  c"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestSkeleton(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "dotted host", in: "gooogle.com", want: "goglecom"},
		{name: "spaced out", in: "g o o g l e . c o m", want: "goglecom"},
		{name: "drops digits and script letters", in: "سایت123 site.ir", want: "siteir"},
		{name: "empty", in: "...", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Skeleton(tt.in)
			if got != tt.want {
				t.Fatalf("Skeleton(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
