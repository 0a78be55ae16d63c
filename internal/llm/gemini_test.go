package llm

import "testing"

func TestCleanJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"padded", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSON(tt.in); got != tt.want {
				t.Fatalf("CleanJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsQuotaErr(t *testing.T) {
	t.Parallel()
	quota := []string{
		"googleapi: Error 429: Resource has been exhausted",
		"rate limit exceeded",
		"quota exceeded for model",
	}
	for _, s := range quota {
		if !isQuotaErr(errString(s)) {
			t.Fatalf("expected quota error for %q", s)
		}
	}
	if isQuotaErr(errString("invalid api key")) {
		t.Fatal("auth errors must not be treated as quota")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
