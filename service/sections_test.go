package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSections_KeepsOrderAndReportsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/movie/top_rated":
			w.WriteHeader(http.StatusBadGateway)
		case r.URL.Path == "/discover/movie":
			_, _ = w.Write([]byte(`{"page":1,"results":[{"id":` + r.URL.Query().Get("with_genres") + `,"title":"Genre pick"}]}`))
		default:
			_, _ = w.Write([]byte(`{"page":1,"results":[{"id":1,"title":"A"},{"id":2,"title":"B"},{"id":3,"title":"C"}]}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server, "key")

	sections, err := client.Sections(context.Background(), DefaultSections(), 2)
	if err == nil {
		t.Fatal("expected joined error for the failed section")
	}
	if !strings.Contains(err.Error(), "top_rated") {
		t.Fatalf("unexpected error: %v", err)
	}

	want := len(DefaultSections()) - 1
	if len(sections) != want {
		t.Fatalf("expected %d sections, got %d", want, len(sections))
	}
	if sections[0].Key != "popular" || sections[1].Key != "now_playing" || sections[2].Key != "upcoming" {
		t.Fatalf("unexpected order: %s %s %s", sections[0].Key, sections[1].Key, sections[2].Key)
	}
	if len(sections[0].Items) != 2 {
		t.Fatalf("expected limit to apply, got %d items", len(sections[0].Items))
	}
	for i, item := range sections[0].Items {
		if item.Rank != i+1 {
			t.Fatalf("expected rank %d, got %d", i+1, item.Rank)
		}
	}
	last := sections[len(sections)-1]
	if last.Key != "genre_10751" || last.Title != "Family" || last.Items[0].ID != 10751 {
		t.Fatalf("unexpected genre section: %+v", last)
	}
}
