package fixtures

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFixtureByID(t *testing.T) {
	goals := func(n int) *int { return &n }

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fixtures/1035043" {
			t.Errorf("Expected path /fixtures/1035043, got %s", r.URL.Path)
		}

		detail := Detail{
			FixtureID: "1035043",
			LeagueID:  "61",
			Season:    2025,
			HomeTeam:  "Lyon",
			AwayTeam:  "Marseille",
			Date:      time.Date(2025, 11, 2, 20, 45, 0, 0, time.UTC),
			Status:    "FT",
			GoalsHome: goals(2),
			GoalsAway: goals(1),
			Winner:    "home",
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(detail)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	detail, err := client.FixtureByID(context.Background(), "1035043")
	if err != nil {
		t.Fatalf("FixtureByID failed: %v", err)
	}

	if detail.Status != "FT" {
		t.Errorf("Status = %s, want FT", detail.Status)
	}
	if !detail.HasScore() || *detail.GoalsHome != 2 || *detail.GoalsAway != 1 {
		t.Errorf("unexpected score: %+v", detail)
	}
}

func TestFixtureByIDServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	if _, err := client.FixtureByID(context.Background(), "999"); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestFixtureByIDContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.FixtureByID(ctx, "1"); err == nil {
		t.Fatal("expected error on context timeout")
	}
}

func TestIsFinished(t *testing.T) {
	for _, s := range []string{"FT", "AET", "PEN"} {
		if !IsFinished(s) {
			t.Errorf("IsFinished(%s) = false, want true", s)
		}
	}
	for _, s := range []string{"NS", "LIVE", "1H", "HT", "PST", ""} {
		if IsFinished(s) {
			t.Errorf("IsFinished(%s) = true, want false", s)
		}
	}
}
