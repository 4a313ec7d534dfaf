package sanitize

import "testing"

func TestApplyRemovesPatterns(t *testing.T) {
	s, err := New([]string{`\bsecret-\w+\b`, `(?i)internal use only`})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "pattern removed",
			in:   "Deployed secret-alpha to production today.",
			want: "Deployed  to production today.",
		},
		{
			name: "case insensitive pattern",
			in:   "Great results. Internal Use Only",
			want: "Great results.",
		},
		{
			name: "no match is untouched",
			in:   "Nothing to hide here.",
			want: "Nothing to hide here.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Apply(tc.in); got != tc.want {
				t.Errorf("Apply(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestApplyNormalizesWhitespace(t *testing.T) {
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	in := "first line   \n\n\n\nsecond line\t\n  "
	want := "first line\n\nsecond line"
	if got := s.Apply(in); got != want {
		t.Errorf("Apply = %q, want %q", got, want)
	}
}

func TestNewRejectsInvalidPattern(t *testing.T) {
	if _, err := New([]string{`[unclosed`}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestApplyCanEmptyText(t *testing.T) {
	s, err := New([]string{`.*`})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.Apply("everything goes"); got != "" {
		t.Fatalf("Apply = %q, want empty", got)
	}
}
