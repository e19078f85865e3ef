package slackclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient points the client at a canned Slack Web API.
func newTestClient(t *testing.T, handlers map[string]string) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for endpoint, response := range handlers {
		resp := response
		mux.HandleFunc("/"+endpoint, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
		})
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := NewClient(WithBotToken("xoxb-test"), WithAPIURL(server.URL+"/"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Errorf("expected error without bot token")
	}
}

func TestPostMessageReturnsTimestamp(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"chat.postMessage": `{"ok":true,"channel":"C1","ts":"123.456"}`,
	})

	ts, err := c.PostMessage(context.Background(), "C1", "hello", "")
	if err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}
	if ts != "123.456" {
		t.Errorf("ts = %q, want 123.456", ts)
	}
}

func TestPostMessageSurfacesAPIError(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"chat.postMessage": `{"ok":false,"error":"channel_not_found"}`,
	})

	if _, err := c.PostMessage(context.Background(), "C1", "hello", ""); err == nil {
		t.Errorf("expected error from failed API call")
	}
}

func TestHistory(t *testing.T) {
	c := newTestClient(t, map[string]string{
		"conversations.history": `{"ok":true,"messages":[
			{"user":"U2","text":"newest","ts":"2.000"},
			{"user":"U1","text":"oldest","ts":"1.000"}
		]}`,
	})

	messages, err := c.History(context.Background(), "C1", 20)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Text != "newest" || messages[0].UserID != "U2" {
		t.Errorf("unexpected first message: %+v", messages[0])
	}
}

func TestDisplayNameFallbackChain(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     string
	}{
		{
			"display name preferred",
			`{"ok":true,"user":{"id":"U1","name":"alice","real_name":"Alice Anderson","profile":{"display_name":"ali"}}}`,
			"ali",
		},
		{
			"real name fallback",
			`{"ok":true,"user":{"id":"U1","name":"alice","real_name":"Alice Anderson","profile":{"display_name":""}}}`,
			"Alice Anderson",
		},
		{
			"username fallback",
			`{"ok":true,"user":{"id":"U1","name":"alice","profile":{"display_name":""}}}`,
			"alice",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, map[string]string{"users.info": tc.response})
			got, err := c.DisplayName(context.Background(), "U1")
			if err != nil {
				t.Fatalf("DisplayName failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("DisplayName = %q, want %q", got, tc.want)
			}
		})
	}
}
