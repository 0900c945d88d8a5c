/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package speaker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/vibedeck/internal/events"
	"github.com/friendsincode/vibedeck/internal/models"
)

// vendorStub records control API calls and serves canned topology and
// favorites.
type vendorStub struct {
	mu    sync.Mutex
	calls []string
	topo  Topology
}

func (v *vendorStub) record(call string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, call)
}

func (v *vendorStub) recorded() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.calls))
	copy(out, v.calls)
	return out
}

func (v *vendorStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /households/{hh}/groups", func(w http.ResponseWriter, r *http.Request) {
		v.record("topology")
		_ = json.NewEncoder(w).Encode(v.topo)
	})
	mux.HandleFunc("GET /households/{hh}/favorites", func(w http.ResponseWriter, r *http.Request) {
		v.record("favorites")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []Favorite{{ID: "fav-1", Name: "Quiet Mornings"}},
		})
	})
	mux.HandleFunc("POST /households/{hh}/groups/createGroup", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PlayerIDs []string `json:"playerIds"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		v.record("createGroup")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"group": Group{ID: "g-merged", Name: "Everywhere", PlayerIDs: body.PlayerIDs},
		})
	})
	mux.HandleFunc("POST /groups/{g}/queue/clear", func(w http.ResponseWriter, r *http.Request) {
		v.record("clearQueue " + r.PathValue("g"))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /players/{p}/playerVolume", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Volume int `json:"volume"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		v.record("playerVolume " + r.PathValue("p"))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /groups/{g}/favorites", func(w http.ResponseWriter, r *http.Request) {
		v.record("loadFavorite " + r.PathValue("g"))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /groups/{g}/playback/play", func(w http.ResponseWriter, r *http.Request) {
		v.record("play " + r.PathValue("g"))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /groups/{g}/playback/pause", func(w http.ResponseWriter, r *http.Request) {
		v.record("pause " + r.PathValue("g"))
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestService(t *testing.T, stub *vendorStub) (*Service, *gorm.DB) {
	t.Helper()

	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Household{}, &models.Speaker{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := db.Create(&models.Household{
		ID:       "hh-1",
		Name:     "Home",
		VendorID: "vendor-hh-1",
	}).Error; err != nil {
		t.Fatalf("seed household: %v", err)
	}

	logger := zerolog.Nop()
	client := NewClient(server.URL, staticTokens{token: "tok"}, logger)
	return NewService(db, client, events.NewBus(), logger), db
}

func TestServiceFavoritesMapsToItems(t *testing.T) {
	stub := &vendorStub{}
	svc, _ := newTestService(t, stub)

	items, err := svc.Favorites(context.Background(), "hh-1")
	if err != nil {
		t.Fatalf("favorites: %v", err)
	}
	if len(items) != 1 || items[0].ID != "fav-1" || items[0].Name != "Quiet Mornings" {
		t.Errorf("items = %+v", items)
	}
}

func TestServiceUnknownHousehold(t *testing.T) {
	stub := &vendorStub{}
	svc, _ := newTestService(t, stub)

	if _, err := svc.Favorites(context.Background(), "nope"); !errors.Is(err, ErrHouseholdNotFound) {
		t.Errorf("favorites = %v, want ErrHouseholdNotFound", err)
	}
	if _, err := svc.PlayFavorite(context.Background(), "nope", "fav-1", PlayOptions{}); !errors.Is(err, ErrHouseholdNotFound) {
		t.Errorf("play favorite = %v, want ErrHouseholdNotFound", err)
	}
}

func TestPlayFavoritePicksLargestGroup(t *testing.T) {
	stub := &vendorStub{topo: Topology{
		Groups: []Group{
			{ID: "g-solo", PlayerIDs: []string{"p1"}},
			{ID: "g-pair", PlayerIDs: []string{"p2", "p3"}},
		},
		Players: []Player{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}},
	}}
	svc, _ := newTestService(t, stub)

	group, err := svc.PlayFavorite(context.Background(), "hh-1", "fav-1", PlayOptions{})
	if err != nil {
		t.Fatalf("play favorite: %v", err)
	}
	if group.ID != "g-pair" {
		t.Errorf("target group = %q, want the largest group g-pair", group.ID)
	}

	calls := stub.recorded()
	want := []string{"topology", "clearQueue g-pair", "loadFavorite g-pair"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestPlayFavoriteAutogroupMergesAllPlayers(t *testing.T) {
	stub := &vendorStub{topo: Topology{
		Groups: []Group{
			{ID: "g1", PlayerIDs: []string{"p1"}},
			{ID: "g2", PlayerIDs: []string{"p2"}},
		},
		Players: []Player{{ID: "p1"}, {ID: "p2"}},
	}}
	svc, _ := newTestService(t, stub)

	group, err := svc.PlayFavorite(context.Background(), "hh-1", "fav-1", PlayOptions{Autogroup: true})
	if err != nil {
		t.Fatalf("play favorite: %v", err)
	}
	if group.ID != "g-merged" {
		t.Errorf("target group = %q, want the merged group", group.ID)
	}
	if len(group.PlayerIDs) != 2 {
		t.Errorf("merged players = %v, want both", group.PlayerIDs)
	}
}

func TestPlayFavoriteAppliesDefaultVolumes(t *testing.T) {
	stub := &vendorStub{topo: Topology{
		Groups:  []Group{{ID: "g1", PlayerIDs: []string{"p1", "p2", "p3"}}},
		Players: []Player{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}},
	}}
	svc, db := newTestService(t, stub)

	// p1 has a default volume, p2's is unset, p3 is unknown locally.
	seed := []models.Speaker{
		{ID: "sp-1", HouseholdID: "hh-1", VendorID: "p1", Name: "Kitchen", DefaultVolume: 35},
		{ID: "sp-2", HouseholdID: "hh-1", VendorID: "p2", Name: "Hall"},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed speaker: %v", err)
		}
	}

	if _, err := svc.PlayFavorite(context.Background(), "hh-1", "fav-1", PlayOptions{ApplyDefaultVolumes: true}); err != nil {
		t.Fatalf("play favorite: %v", err)
	}

	var volumeCalls int
	for _, call := range stub.recorded() {
		switch call {
		case "playerVolume p1":
			volumeCalls++
		case "playerVolume p2", "playerVolume p3":
			t.Errorf("unexpected volume call %q", call)
		}
	}
	if volumeCalls != 1 {
		t.Errorf("volume calls for p1 = %d, want 1", volumeCalls)
	}
}

func TestPlayFavoriteNoGroups(t *testing.T) {
	stub := &vendorStub{topo: Topology{Players: []Player{{ID: "p1"}}}}
	svc, _ := newTestService(t, stub)

	_, err := svc.PlayFavorite(context.Background(), "hh-1", "fav-1", PlayOptions{})
	if !errors.Is(err, ErrNoGroups) {
		t.Fatalf("play favorite = %v, want ErrNoGroups", err)
	}
}
