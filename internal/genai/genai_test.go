package genai

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Errorf("expected error when no API key is configured")
	}
}

func TestNewClientFromOption(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c, err := NewClient(WithAPIKey("sk-test"), WithModel("gpt-4o"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", c.model)
	}
}

func TestNewClientDefaultModel(t *testing.T) {
	c, err := NewClient(WithAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.model != openai.ChatModelGPT4oMini {
		t.Errorf("model = %q, want default %q", c.model, openai.ChatModelGPT4oMini)
	}
}

func TestClassifyAPIErrors(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		code       string
		wantKind   ErrorKind
		wantReason string
	}{
		{"unauthorized", 401, "invalid_api_key", ErrorKindAuth, "invalid_api_key"},
		{"forbidden", 403, "", ErrorKindAuth, ""},
		{"rate limited", 429, "insufficient_quota", ErrorKindQuota, "insufficient_quota"},
		{"server error", 500, "server_error", ErrorKindUnknown, "server_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			apierr := &openai.Error{StatusCode: tc.statusCode, Code: tc.code, Message: "upstream message"}
			got := Classify(apierr)
			if got.Kind != tc.wantKind {
				t.Errorf("kind = %q, want %q", got.Kind, tc.wantKind)
			}
			if tc.wantReason != "" && got.Reason != tc.wantReason {
				t.Errorf("reason = %q, want %q", got.Reason, tc.wantReason)
			}
		})
	}
}

func TestClassifyFallsBackToMessage(t *testing.T) {
	apierr := &openai.Error{StatusCode: 429, Message: "Rate limit reached"}
	got := Classify(apierr)
	if got.Kind != ErrorKindQuota {
		t.Errorf("kind = %q, want %q", got.Kind, ErrorKindQuota)
	}
	if got.Reason != "Rate limit reached" {
		t.Errorf("reason = %q, want upstream message", got.Reason)
	}
}

func TestClassifyNetworkError(t *testing.T) {
	urlErr := &url.Error{Op: "Post", URL: "https://api.openai.com", Err: fmt.Errorf("connection refused")}
	got := Classify(urlErr)
	if got.Kind != ErrorKindNetwork {
		t.Errorf("kind = %q, want %q", got.Kind, ErrorKindNetwork)
	}
}

func TestClassifyUnknownError(t *testing.T) {
	got := Classify(errors.New("something odd"))
	if got.Kind != ErrorKindUnknown {
		t.Errorf("kind = %q, want %q", got.Kind, ErrorKindUnknown)
	}
	if got.Reason != "something odd" {
		t.Errorf("reason = %q", got.Reason)
	}
}

func TestCompletionErrorString(t *testing.T) {
	err := &CompletionError{Kind: ErrorKindQuota, Reason: "insufficient_quota"}
	if !strings.Contains(err.Error(), "quota_error") || !strings.Contains(err.Error(), "insufficient_quota") {
		t.Errorf("error string should carry kind and reason, got %q", err.Error())
	}
}
