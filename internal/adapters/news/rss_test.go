package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Wire</title>
<item>
<title>Older headline</title>
<link>https://example.com/old</link>
<description>Old story</description>
<pubDate>Mon, 24 Aug 2026 10:00:00 GMT</pubDate>
<category>economy</category>
</item>
<item>
<title>Newer headline</title>
<link>https://example.com/new</link>
<description>New story</description>
<pubDate>Tue, 25 Aug 2026 10:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

func TestRSSProvider_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeedXML))
	}))
	defer server.Close()

	p := NewRSSProvider([]string{server.URL}, true)
	items, err := p.Fetch(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].Headline != "Newer headline" {
		t.Errorf("expected newest item first, got %q", items[0].Headline)
	}
	if items[0].Source != "Test Wire" {
		t.Errorf("expected source from feed title, got %q", items[0].Source)
	}
	if items[0].URL != "https://example.com/new" {
		t.Errorf("unexpected URL: %q", items[0].URL)
	}
	if items[1].Summary != "Old story" {
		t.Errorf("unexpected summary: %q", items[1].Summary)
	}
	if len(items[1].Keywords) != 1 || items[1].Keywords[0] != "economy" {
		t.Errorf("expected category mapped to keywords, got %v", items[1].Keywords)
	}
}

func TestRSSProvider_Limit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeedXML))
	}))
	defer server.Close()

	p := NewRSSProvider([]string{server.URL}, true)
	items, err := p.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Headline != "Newer headline" {
		t.Fatalf("expected only the newest item, got %v", items)
	}
}

func TestRSSProvider_AllFeedsFailing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewRSSProvider([]string{server.URL}, true)
	if _, err := p.Fetch(context.Background(), 10); err == nil {
		t.Fatal("expected an error when every feed fails")
	}
}

func TestRSSProvider_PartialFailure(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeedXML))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	p := NewRSSProvider([]string{bad.URL, good.URL}, true)
	items, err := p.Fetch(context.Background(), 10)
	if err != nil {
		t.Fatalf("one healthy feed should be enough: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected items from the healthy feed, got %d", len(items))
	}
}

func TestRSSProvider_Disabled(t *testing.T) {
	p := NewRSSProvider(nil, true)
	if p.IsEnabled() {
		t.Error("provider with no feeds should be disabled")
	}

	p = NewRSSProvider([]string{"https://example.com/feed"}, false)
	if p.IsEnabled() {
		t.Error("provider should honor the enabled flag")
	}
	items, err := p.Fetch(context.Background(), 10)
	if err != nil || items != nil {
		t.Errorf("disabled provider should return nothing, got %v, %v", items, err)
	}
}

func TestConvertFeed(t *testing.T) {
	published := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	feed := &gofeed.Feed{
		Title: "",
		Items: []*gofeed.Item{
			{
				Title:           "Headline with date",
				Link:            "https://example.com/a",
				PublishedParsed: &published,
			},
			{
				Title: "Headline without date",
				Link:  "https://example.com/b",
			},
			{Title: ""},
			nil,
		},
	}

	items := convertFeed(feed, "https://feeds.example.com/markets.xml")
	if len(items) != 2 {
		t.Fatalf("expected 2 items (untitled entries dropped), got %d", len(items))
	}

	if items[0].Source != "feeds.example.com" {
		t.Errorf("expected host fallback for source, got %q", items[0].Source)
	}
	if !items[0].PublishedAt.Equal(published) {
		t.Errorf("expected parsed publication time, got %v", items[0].PublishedAt)
	}
	if items[1].PublishedAt.IsZero() {
		t.Error("entry without a date should default to now, not zero")
	}
	if items[0].ID == "" || items[0].ID == items[1].ID {
		t.Error("each item should get a unique ID")
	}
}
