package videoroom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"acmportal/config"
)

func TestCreateJoinLink(t *testing.T) {
	var body struct {
		Action string                 `json:"action"`
		Params map[string]interface{} `json:"params"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/skyroom/api/key-1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"ok":true,"result":"https://www.skyroom.online/ch/acm/room?token=abc"}`))
	}))
	defer srv.Close()

	s := NewSkyroom(config.Skyroom{BaseURL: srv.URL, APIKey: "key-1", Timeout: 2 * time.Second})
	link, err := s.CreateJoinLink(context.Background(), JoinRequest{
		RoomID:   "42",
		UserID:   "a@example.com",
		Nickname: "Ali Rezaei",
		TTL:      90 * time.Minute,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if link != "https://www.skyroom.online/ch/acm/room?token=abc" {
		t.Fatalf("unexpected link %q", link)
	}
	if body.Action != "createLoginUrl" {
		t.Fatalf("expected createLoginUrl action, got %q", body.Action)
	}
	if body.Params["room_id"] != float64(42) || body.Params["ttl"] != float64(5400) {
		t.Fatalf("unexpected params %v", body.Params)
	}
	if body.Params["user_id"] != "a@example.com" || body.Params["language"] != "fa" {
		t.Fatalf("unexpected params %v", body.Params)
	}
}

func TestCreateJoinLinkProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":{"error_code":13,"error_message":"room not found"}}`))
	}))
	defer srv.Close()

	s := NewSkyroom(config.Skyroom{BaseURL: srv.URL, APIKey: "k", Timeout: time.Second})
	if _, err := s.CreateJoinLink(context.Background(), JoinRequest{RoomID: "1"}); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestCreateJoinLinkNotConfigured(t *testing.T) {
	s := NewSkyroom(config.Skyroom{})
	if _, err := s.CreateJoinLink(context.Background(), JoinRequest{}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
