package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yicone/chatgpt-web-share/internal/rotation"
	"github.com/yicone/chatgpt-web-share/internal/stats"
	"github.com/yicone/chatgpt-web-share/internal/version"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// maskToken hides all but the tail of a credential for display.
func maskToken(t string) string {
	if t == "" {
		return ""
	}
	if len(t) < 20 {
		return "..."
	}
	return "..." + t[len(t)-12:]
}

type statusResponse struct {
	Version       string                `json:"version"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	ProxyAlive    bool                  `json:"proxy_alive"`
	Accounts      int                   `json:"accounts"`
	PlusAccounts  int                   `json:"plus_accounts"`
	LastTick      *rotation.TickSummary `json:"last_tick"`
}

// StatusHandler reports daemon liveness and the last rotation outcome.
func StatusHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts := deps.Runner.Accounts()
		plus := 0
		active := 0
		for _, acc := range accounts {
			if !acc.IsActive {
				continue
			}
			active++
			if acc.IsPlus {
				plus++
			}
		}
		writeJSON(w, http.StatusOK, statusResponse{
			Version:       version.Version,
			UptimeSeconds: int64(time.Since(deps.StartedAt).Seconds()),
			ProxyAlive:    deps.Handle.Alive(),
			Accounts:      active,
			PlusAccounts:  plus,
			LastTick:      deps.Runner.Last(),
		})
	}
}

type accountView struct {
	ID                      uint       `json:"id"`
	Email                   string     `json:"email"`
	IsPlus                  bool       `json:"is_plus"`
	IsActive                bool       `json:"is_active"`
	AccessToken             string     `json:"access_token"`
	PUID                    string     `json:"puid"`
	AccessTokenRefreshTime  *time.Time `json:"access_token_refresh_time"`
	SessionTokenRefreshTime *time.Time `json:"session_token_refresh_time"`
	PUIDRefreshTime         *time.Time `json:"puid_refresh_time"`
}

// AccountsHandler lists the working account set with masked credentials.
func AccountsHandler(runner *rotation.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts := runner.Accounts()
		views := make([]accountView, 0, len(accounts))
		for _, acc := range accounts {
			views = append(views, accountView{
				ID:                      acc.ID,
				Email:                   acc.Email,
				IsPlus:                  acc.IsPlus,
				IsActive:                acc.IsActive,
				AccessToken:             maskToken(acc.AccessToken),
				PUID:                    maskToken(acc.PUID),
				AccessTokenRefreshTime:  acc.AccessTokenRefreshTime,
				SessionTokenRefreshTime: acc.SessionTokenRefreshTime,
				PUIDRefreshTime:         acc.PUIDRefreshTime,
			})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// RotateHandler triggers a rotation tick in the background. The tick can
// take minutes with the inter-account delay, so the response is immediate;
// the tick itself runs under the daemon context and stops on shutdown.
func RotateHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			summary := deps.Runner.Run(deps.baseContext())
			deps.Stats.CountRotationTick(summary.Updated, summary.Failed)
			deps.Stats.CountPUIDRefreshes(summary.PUIDRefreshed)
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "ok",
			"message": "Rotation tick triggered",
		})
	}
}

// SyncHandler triggers a conversation sync in the background, bounded by
// the daemon context.
func SyncHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go deps.SyncNow(deps.baseContext())
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "ok",
			"message": "Conversation sync triggered",
		})
	}
}

// StatsHandler returns the current statistics snapshot.
func StatsHandler(store *stats.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.Current())
	}
}
