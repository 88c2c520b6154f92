package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFeedCollector_Collect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"title": "IU Concert", "open_date": "2025.03.01 18:00", "link": "http://x"},
			{"title": "BTS Fanmeeting", "open_date": "2025.04.01", "link": "http://y", "source": "other"}
		]`))
	}))
	defer srv.Close()

	c := NewFeedCollector("interpark", srv.URL, time.Second)
	records, err := c.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Source != "interpark" {
		t.Fatalf("missing source must be stamped with the collector name, got %q", records[0].Source)
	}
	if records[1].Source != "other" {
		t.Fatalf("explicit source must be kept, got %q", records[1].Source)
	}
}

func TestFeedCollector_EmptyFeedIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewFeedCollector("yes24", srv.URL, time.Second)
	records, err := c.Collect(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty result, got %d", len(records))
	}
}

func TestFeedCollector_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewFeedCollector("melon", srv.URL, time.Second)
	if _, err := c.Collect(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}
