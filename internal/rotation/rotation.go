// Package rotation implements the recurring token-rotation tick: for every
// active upstream account it re-authenticates, compares the fresh tokens
// against the stored ones, refreshes the puid for Plus accounts, and writes
// back only what changed.
package rotation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/yicone/chatgpt-web-share/internal/db/models"
	"github.com/yicone/chatgpt-web-share/internal/secret"
	"github.com/yicone/chatgpt-web-share/internal/upstream"
)

// CredentialStore is the writable side of the account store.
type CredentialStore interface {
	UpdateAccount(id uint, fields map[string]any) error
	SetActive(id uint, active bool) error
}

// PUIDRefresher obtains a fresh puid via the reverse proxy. An empty puid
// with a nil error means the refresh was skipped (proxy not running).
type PUIDRefresher interface {
	Refresh(ctx context.Context, email, accessToken, puid string) (string, error)
}

// TickSummary is the outcome of one rotation tick, exposed on the operator
// API and logged at tick completion.
type TickSummary struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Processed     int       `json:"processed"`
	Updated       int       `json:"updated"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	PUIDRefreshed int       `json:"puid_refreshed"`
}

// Options tune per-tick behavior from the daemon configuration.
type Options struct {
	// AccountDelay spaces out upstream calls between accounts.
	AccountDelay time.Duration
	// DeactivateOnAuthFailure marks an account inactive after a failed
	// authentication so it stops failing every cycle. Off by default.
	DeactivateOnAuthFailure bool
}

// Rotator runs rotation ticks over the account set loaded at startup.
// The slice order is the tick processing order and never changes.
type Rotator struct {
	accounts []models.Account
	store    CredentialStore
	auth     upstream.Authenticator
	puid     PUIDRefresher
	cipher   *secret.Cipher // nil when no account secret is configured
	opts     Options
}

// NewRotator builds a rotator over the startup account set. Accounts added
// to the store later are picked up on the next daemon restart, matching the
// reference deployment.
func NewRotator(accounts []models.Account, store CredentialStore, auth upstream.Authenticator, puid PUIDRefresher, cipher *secret.Cipher, opts Options) *Rotator {
	return &Rotator{
		accounts: accounts,
		store:    store,
		auth:     auth,
		puid:     puid,
		cipher:   cipher,
		opts:     opts,
	}
}

// Accounts returns the rotator's working copy of the account set.
func (r *Rotator) Accounts() []models.Account {
	return r.accounts
}

// RunTick processes every account once. It never fails as a whole: each
// account's errors are logged with its email and the loop moves on. The
// context cancels the tick between accounts and inside network calls.
func (r *Rotator) RunTick(ctx context.Context) TickSummary {
	summary := TickSummary{Start: time.Now()}
	log.Println("Refreshing access_token and puid...")

	for i := range r.accounts {
		if ctx.Err() != nil {
			log.Printf("⚠️ Rotation tick interrupted after %d accounts", summary.Processed)
			break
		}

		account := &r.accounts[i]
		if !account.IsActive {
			continue
		}
		if !account.HasCredentials() {
			log.Printf("⚠️ Account %s has no password or access_token, skipping", account.Email)
			summary.Skipped++
			continue
		}

		if r.rotateAccount(ctx, account, &summary) {
			summary.Processed++
		} else {
			summary.Failed++
		}

		r.pause(ctx)
	}

	summary.End = time.Now()
	log.Printf("All access_token refreshed (%d processed, %d updated, %d skipped, %d failed)",
		summary.Processed, summary.Updated, summary.Skipped, summary.Failed)
	return summary
}

// rotateAccount runs one account through authenticate → compare → puid →
// persist. Returns false when the account counts as failed for this tick.
func (r *Rotator) rotateAccount(ctx context.Context, account *models.Account, summary *TickSummary) bool {
	session, err := r.auth.Authenticate(ctx, r.credentials(account))
	if err != nil {
		log.Printf("❌ Error when refreshing access_token for %s: %v", account.Email, err)
		if r.opts.DeactivateOnAuthFailure && errors.Is(err, upstream.ErrAuthFailed) {
			if err := r.store.SetActive(account.ID, false); err != nil {
				log.Printf("⚠️ Failed to deactivate %s: %v", account.Email, err)
			} else {
				account.IsActive = false
				log.Printf("🔒 Account %s deactivated after auth failure", account.Email)
			}
		}
		return false
	}
	log.Printf("%s login success.", account.Email)

	now := time.Now()
	fields := map[string]any{}

	// An empty token from the provider means "nothing issued", not "cleared".
	if session.AccessToken != "" && session.AccessToken != account.AccessToken {
		fields["access_token"] = session.AccessToken
		fields["access_token_refresh_time"] = &now
	}
	if session.SessionToken != "" && session.SessionToken != account.SessionToken {
		fields["session_token"] = session.SessionToken
		fields["session_token_refresh_time"] = &now
	}

	// puid handling is strictly scoped to Plus accounts.
	newPUID := ""
	if account.IsPlus {
		accessToken := account.AccessToken
		if session.AccessToken != "" {
			accessToken = session.AccessToken
		}
		puid, err := r.puid.Refresh(ctx, account.Email, accessToken, account.PUID)
		switch {
		case err != nil:
			// puid stays unchanged; token updates below still persist.
			log.Printf("❌ Error refreshing puid for %s: %v", account.Email, err)
		case puid != "" && puid != account.PUID:
			newPUID = puid
			fields["puid"] = puid
			fields["puid_refresh_time"] = &now
			summary.PUIDRefreshed++
			log.Printf("%s puid refreshed. Is puid updated? true", account.Email)
		case puid != "":
			log.Printf("%s puid refreshed. Is puid updated? false", account.Email)
		}
	}

	if len(fields) == 0 {
		return true // unchanged account, no write at all
	}

	if err := r.store.UpdateAccount(account.ID, fields); err != nil {
		log.Printf("❌ Error persisting tokens for %s: %v", account.Email, err)
		return false
	}

	// Keep the working copy current so the next tick compares against what
	// was persisted.
	if v, ok := fields["access_token"]; ok {
		account.AccessToken = v.(string)
		account.AccessTokenRefreshTime = &now
	}
	if v, ok := fields["session_token"]; ok {
		account.SessionToken = v.(string)
		account.SessionTokenRefreshTime = &now
	}
	if newPUID != "" {
		account.PUID = newPUID
		account.PUIDRefreshTime = &now
	}

	summary.Updated++
	return true
}

// credentials assembles the authenticator input, decrypting the stored
// password when a cipher is configured. A bad ciphertext downgrades the
// account to token-only credentials instead of failing it outright.
func (r *Rotator) credentials(account *models.Account) upstream.Credentials {
	creds := upstream.Credentials{
		Email:        account.Email,
		AccessToken:  account.AccessToken,
		SessionToken: account.SessionToken,
	}
	if account.EncryptedPassword == "" || r.cipher == nil {
		return creds
	}
	password, err := r.cipher.Decrypt(account.EncryptedPassword)
	switch {
	case errors.Is(err, secret.ErrMalformedToken):
		log.Printf("⚠️ Stored password for %s is malformed, ignoring it", account.Email)
	case errors.Is(err, secret.ErrDecryptFailed):
		log.Printf("⚠️ Stored password for %s does not decrypt under the configured key, ignoring it", account.Email)
	case err != nil:
		log.Printf("⚠️ Failed to decrypt password for %s: %v", account.Email, err)
	default:
		creds.Password = password
	}
	return creds
}

// pause applies the inter-account delay, aborting early on cancellation.
func (r *Rotator) pause(ctx context.Context) {
	if r.opts.AccountDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(r.opts.AccountDelay):
	}
}
