package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthenticateNoCredentials(t *testing.T) {
	client := NewClient("http://unused")
	_, err := client.Authenticate(context.Background(), Credentials{Email: "a@x.com"})
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestAuthenticateWithSessionToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/session" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value != "st-old" {
			t.Errorf("session cookie not sent: %v", err)
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "st-new"})
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "at-new"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	session, err := client.Authenticate(context.Background(), Credentials{Email: "a@x.com", SessionToken: "st-old"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.AccessToken != "at-new" {
		t.Errorf("access token = %q", session.AccessToken)
	}
	if session.SessionToken != "st-new" {
		t.Errorf("rotated session token not picked up, got %q", session.SessionToken)
	}
}

func TestAuthenticateKeepsSessionTokenWithoutRotation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "at"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	session, err := client.Authenticate(context.Background(), Credentials{SessionToken: "st"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.SessionToken != "st" {
		t.Errorf("session token should be unchanged, got %q", session.SessionToken)
	}
}

func TestAuthenticateWithAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("authorization header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "at-1"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	session, err := client.Authenticate(context.Background(), Credentials{AccessToken: "at-1"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.AccessToken != "at-1" {
		t.Errorf("access token = %q", session.AccessToken)
	}
}

func TestAuthenticateWithPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req loginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@x.com" || req.Password != "hunter2" {
			t.Errorf("unexpected login body: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"accessToken": "at", "sessionToken": "st"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	session, err := client.Authenticate(context.Background(), Credentials{Email: "a@x.com", Password: "hunter2"})
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.AccessToken != "at" || session.SessionToken != "st" {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestAuthenticateProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Authenticate(context.Background(), Credentials{SessionToken: "expired"})
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}
