package transcript

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dummycorp/dummybot/internal/models"
	"github.com/dummycorp/dummybot/internal/slackclient"
)

// fakeReader serves canned history and display names.
type fakeReader struct {
	messages   []slackclient.Message
	historyErr error
	names      map[string]string
	nameErr    map[string]error
	lastLimit  int
}

func (f *fakeReader) History(ctx context.Context, channelID string, limit int) ([]slackclient.Message, error) {
	f.lastLimit = limit
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if limit < len(f.messages) {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func (f *fakeReader) DisplayName(ctx context.Context, userID string) (string, error) {
	if err, ok := f.nameErr[userID]; ok {
		return "", err
	}
	if name, ok := f.names[userID]; ok {
		return name, nil
	}
	return "", fmt.Errorf("no such user %s", userID)
}

func TestStripMentions(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"<@U123ABC> hello", "hello"},
		{"hello <@U123ABC> there", "hello  there"},
		{"no mentions here", "no mentions here"},
		{"<@U1><@U2>", ""},
		{"  <@U123ABC>  ", ""},
	}
	for _, tc := range cases {
		if got := StripMentions(tc.in); got != tc.want {
			t.Errorf("StripMentions(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWindowFor(t *testing.T) {
	if got := WindowFor(models.ModeBroadcast); got != BroadcastWindow {
		t.Errorf("broadcast window = %d, want %d", got, BroadcastWindow)
	}
	if got := WindowFor(models.ModeDirect); got != DirectWindow {
		t.Errorf("direct window = %d, want %d", got, DirectWindow)
	}
}

func TestAssembleDirectModeSkipsFetch(t *testing.T) {
	reader := &fakeReader{historyErr: fmt.Errorf("should not be called")}
	a := NewAssembler(reader)

	entries, err := a.Assemble(context.Background(), "D1", "1.000", models.ModeDirect)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("direct mode should produce no history, got %d entries", len(entries))
	}
	if reader.lastLimit != 0 {
		t.Errorf("direct mode should not fetch history")
	}
}

func TestAssembleOrdersAndDropsTrigger(t *testing.T) {
	// Newest first, as the API returns them. The trigger is the newest.
	reader := &fakeReader{
		messages: []slackclient.Message{
			{UserID: "U1", Text: "<@UBOT> summarize", Timestamp: "4.000"},
			{UserID: "U2", Text: "third", Timestamp: "3.000"},
			{UserID: "U1", Text: "second", Timestamp: "2.000"},
			{UserID: "U2", Text: "first", Timestamp: "1.000"},
		},
		names: map[string]string{"U1": "Alice", "U2": "Bob"},
	}
	a := NewAssembler(reader)

	entries, err := a.Assemble(context.Background(), "C1", "4.000", models.ModeBroadcast)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if reader.lastLimit != BroadcastWindow+1 {
		t.Errorf("expected fetch limit %d, got %d", BroadcastWindow+1, reader.lastLimit)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries after dropping trigger, got %d", len(entries))
	}
	if entries[0].Text != "first" || entries[2].Text != "third" {
		t.Errorf("expected chronological order, got %+v", entries)
	}
	if entries[0].AuthorDisplayName != "Bob" || entries[1].AuthorDisplayName != "Alice" {
		t.Errorf("expected resolved author names, got %+v", entries)
	}
}

func TestAssembleDegradesOnNameLookupFailure(t *testing.T) {
	reader := &fakeReader{
		messages: []slackclient.Message{
			{UserID: "U1", Text: "hello", Timestamp: "1.000"},
		},
		names:   map[string]string{},
		nameErr: map[string]error{"U1": fmt.Errorf("user_not_found")},
	}
	a := NewAssembler(reader)

	entries, err := a.Assemble(context.Background(), "C1", "9.000", models.ModeBroadcast)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].AuthorDisplayName != "Unknown User" {
		t.Errorf("expected placeholder author, got %q", entries[0].AuthorDisplayName)
	}
}

func TestAssembleHistoryFetchFailure(t *testing.T) {
	reader := &fakeReader{historyErr: fmt.Errorf("channel_not_found")}
	a := NewAssembler(reader)

	if _, err := a.Assemble(context.Background(), "C1", "1.000", models.ModeBroadcast); err == nil {
		t.Errorf("expected error from failed history fetch")
	}
}

func TestAssembleStripsMentionsFromHistory(t *testing.T) {
	reader := &fakeReader{
		messages: []slackclient.Message{
			{UserID: "U1", Text: "<@UBOT> what do you think", Timestamp: "1.000"},
		},
		names: map[string]string{"U1": "Alice"},
	}
	a := NewAssembler(reader)

	entries, err := a.Assemble(context.Background(), "C1", "9.000", models.ModeBroadcast)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if entries[0].Text != "what do you think" {
		t.Errorf("expected mention markup stripped, got %q", entries[0].Text)
	}
}

func TestRender(t *testing.T) {
	if got := Render(nil); got != "" {
		t.Errorf("empty transcript should render empty, got %q", got)
	}

	entries := []models.TranscriptEntry{
		{AuthorDisplayName: "Alice", Text: "hello", Timestamp: "1.000"},
		{AuthorDisplayName: "Bob", Text: "hi", Timestamp: "2.000"},
	}
	got := Render(entries)
	if !strings.Contains(got, `<message id="1" author="Alice" ts="1.000">`) {
		t.Errorf("expected first message tag, got:\n%s", got)
	}
	if !strings.Contains(got, `<message id="2" author="Bob" ts="2.000">`) {
		t.Errorf("expected second message tag, got:\n%s", got)
	}
	if !strings.Contains(got, "hello\n</message>") {
		t.Errorf("expected message body before closing tag, got:\n%s", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Errorf("expected trailing newlines trimmed")
	}
}
