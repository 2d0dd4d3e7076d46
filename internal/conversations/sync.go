// Package conversations reconciles the local conversation mapping with the
// upstream provider's conversation list for every active account.
package conversations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/yicone/chatgpt-web-share/internal/db"
	"github.com/yicone/chatgpt-web-share/internal/db/models"
	"github.com/yicone/chatgpt-web-share/internal/util"
)

// Remote is one conversation as reported by the provider.
type Remote struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Model      string     `json:"model"`
	CreateTime time.Time  `json:"create_time"`
	UpdateTime *time.Time `json:"update_time"`
}

// Fetcher lists the upstream conversations for one access token.
type Fetcher interface {
	ListConversations(ctx context.Context, accessToken string) ([]Remote, error)
}

// HTTPFetcher pages through the provider's conversation listing endpoint.
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
}

// NewHTTPFetcher creates a fetcher for the given provider base URL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		pageSize:   100,
	}
}

type listPage struct {
	Items []Remote `json:"items"`
	Total int      `json:"total"`
}

// ListConversations fetches every page of the account's conversation list.
func (f *HTTPFetcher) ListConversations(ctx context.Context, accessToken string) ([]Remote, error) {
	var all []Remote
	for offset := 0; ; offset += f.pageSize {
		url := fmt.Sprintf("%s/backend-api/conversations?offset=%d&limit=%d", f.baseURL, offset, f.pageSize)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			text, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
			resp.Body.Close()
			return nil, fmt.Errorf("list conversations: status %d: %s", resp.StatusCode, util.TruncateBytes(text))
		}

		var page listPage
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("list conversations: %w", err)
		}

		all = append(all, page.Items...)
		if len(page.Items) < f.pageSize || (page.Total > 0 && len(all) >= page.Total) {
			return all, nil
		}
	}
}

// ModelCounter records which models the synced conversations used.
type ModelCounter interface {
	CountModelUse(model string)
}

// Syncer reconciles conversation rows for a set of accounts.
type Syncer struct {
	store   *db.ConversationStore
	fetcher Fetcher
	stats   ModelCounter // nil disables model counting
}

// NewSyncer builds a syncer over the conversation store.
func NewSyncer(store *db.ConversationStore, fetcher Fetcher, stats ModelCounter) *Syncer {
	return &Syncer{store: store, fetcher: fetcher, stats: stats}
}

// Sync pulls the upstream conversation list for every active account with
// an access token and reconciles the local rows: unknown ids are inserted,
// known ids refreshed, vanished ids marked invalid. Per-account failures
// are logged and skipped.
func (s *Syncer) Sync(ctx context.Context, accounts []models.Account) {
	log.Println("Syncing conversations...")
	synced := 0
	for _, account := range accounts {
		if ctx.Err() != nil {
			log.Println("⚠️ Conversation sync interrupted")
			return
		}
		if !account.IsActive || account.AccessToken == "" {
			continue
		}
		if err := s.syncAccount(ctx, account); err != nil {
			log.Printf("❌ Error syncing conversations for %s: %v", account.Email, err)
			continue
		}
		synced++
	}
	log.Printf("Conversations synced for %d accounts", synced)
}

func (s *Syncer) syncAccount(ctx context.Context, account models.Account) error {
	remotes, err := s.fetcher.ListConversations(ctx, account.AccessToken)
	if err != nil {
		return err
	}

	keep := make([]string, 0, len(remotes))
	for _, remote := range remotes {
		if remote.ID == "" {
			continue
		}
		keep = append(keep, remote.ID)
		if s.stats != nil {
			s.stats.CountModelUse(remote.Model)
		}
		conv := &models.Conversation{
			ConversationID: remote.ID,
			Title:          remote.Title,
			AccountID:      account.ID,
			ModelName:      remote.Model,
			IsValid:        true,
			CreateTime:     remote.CreateTime,
			ActiveTime:     remote.UpdateTime,
		}
		if err := s.store.Upsert(conv); err != nil {
			return err
		}
	}

	return s.store.MarkInvalidExcept(account.ID, keep)
}
