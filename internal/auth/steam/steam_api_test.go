package steam

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const playerSummariesBody = `{
  "response": {
    "players": [
      {
        "steamid": "76561197960287930",
        "communityvisibilitystate": 3,
        "profilestate": 1,
        "personaname": "Alice",
        "profileurl": "https://steamcommunity.com/id/alice/",
        "avatar": "https://avatars.example/a.jpg",
        "avatarmedium": "https://avatars.example/a_medium.jpg",
        "avatarfull": "https://avatars.example/a_full.jpg",
        "lastlogoff": 1760000000,
        "realname": "Alice Example",
        "timecreated": 1063407589,
        "loccountrycode": "US",
        "locstatecode": "WA",
        "loccityid": 3961
      }
    ]
  }
}`

func TestFetchProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantName string
		wantNil  bool
	}{
		{name: "found", status: http.StatusOK, body: playerSummariesBody, wantName: "Alice"},
		{name: "empty player list", status: http.StatusOK, body: `{"response":{"players":[]}}`, wantNil: true},
		{name: "missing response", status: http.StatusOK, body: `{}`, wantNil: true},
		{name: "forbidden", status: http.StatusForbidden, body: `<html>Forbidden</html>`, wantNil: true},
		{name: "server error", status: http.StatusInternalServerError, body: ``, wantNil: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			requests := make(chan *http.Request, 4)
			api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests <- r
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer api.Close()

			profile, err := NewProfileClient(api.URL+"/", time.Second).FetchProfile(context.Background(), "ABC123", "76561197960287930")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(requests) != 1 {
				t.Fatalf("expected exactly one request, got %d", len(requests))
			}
			r := <-requests
			if r.URL.Path != "/ISteamUser/GetPlayerSummaries/v2/" {
				t.Errorf("path = %q", r.URL.Path)
			}
			if r.URL.Query().Get("key") != "ABC123" || r.URL.Query().Get("steamids") != "76561197960287930" {
				t.Errorf("query = %q", r.URL.RawQuery)
			}

			if tt.wantNil {
				if profile != nil {
					t.Fatalf("expected nil profile, got %+v", profile)
				}
				return
			}
			if profile == nil {
				t.Fatal("expected a profile")
			}
			if profile.PersonaName != tt.wantName || profile.SteamID64 != "76561197960287930" {
				t.Fatalf("unexpected profile: %+v", profile)
			}
			if !profile.IsPublic() {
				t.Error("visibility 3 should be public")
			}
			if profile.AvatarFull != "https://avatars.example/a_full.jpg" || profile.LocCityID != 3961 || profile.TimeCreated != 1063407589 {
				t.Errorf("fields not mapped: %+v", profile)
			}
		})
	}
}

func TestFetchProfile_NetworkFailure(t *testing.T) {
	t.Parallel()

	api := httptest.NewServer(http.NotFoundHandler())
	base := api.URL
	api.Close()

	profile, err := NewProfileClient(base, time.Second).FetchProfile(context.Background(), "ABCDEFGHIJKLMNOP", "1")
	if profile != nil {
		t.Fatalf("expected nil profile, got %+v", profile)
	}
	if !errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}
	if msg := err.Error(); strings.Contains(msg, "ABCDEFGHIJKLMNOP") {
		t.Fatalf("api key leaked into error: %s", msg)
	}
}
