package rotation

import (
	"context"
	"fmt"
	"testing"

	"github.com/yicone/chatgpt-web-share/internal/db/models"
	"github.com/yicone/chatgpt-web-share/internal/upstream"
)

// rollingAuth issues a new token on every call so each tick mutates the
// rotator's working copy.
type rollingAuth struct {
	n int
}

func (a *rollingAuth) Authenticate(context.Context, upstream.Credentials) (*upstream.Session, error) {
	a.n++
	return &upstream.Session{AccessToken: fmt.Sprintf("t%d", a.n)}, nil
}

func TestRunnerRecordsLastSummary(t *testing.T) {
	rot := NewRotator([]models.Account{
		{ID: 1, Email: "a@x.com", IsActive: true, AccessToken: "t0"},
	}, newRecordingStore(), &rollingAuth{}, &fakeRefresher{}, nil, Options{})
	runner := NewRunner(rot)

	if runner.Last() != nil {
		t.Fatal("Last() must be nil before the first tick")
	}
	summary := runner.Run(context.Background())
	last := runner.Last()
	if last == nil || last.Processed != summary.Processed || last.Updated != summary.Updated {
		t.Fatalf("Last() = %+v, want %+v", last, summary)
	}
}

func TestRunnerAccountsReturnsCopy(t *testing.T) {
	rot := NewRotator([]models.Account{
		{ID: 1, Email: "a@x.com", IsActive: true, AccessToken: "t0"},
	}, newRecordingStore(), &rollingAuth{}, &fakeRefresher{}, nil, Options{})
	runner := NewRunner(rot)

	snap := runner.Accounts()
	if len(snap) != 1 {
		t.Fatalf("expected 1 account, got %d", len(snap))
	}
	snap[0].AccessToken = "mutated"
	if runner.Accounts()[0].AccessToken == "mutated" {
		t.Fatal("Accounts() must return a copy, not the working slice")
	}
}

// Run under -race: account reads must not observe a tick's working-copy
// writes mid-flight.
func TestRunnerAccountsConcurrentWithTicks(t *testing.T) {
	rot := NewRotator([]models.Account{
		{ID: 1, Email: "a@x.com", IsActive: true, AccessToken: "t0"},
		{ID: 2, Email: "b@x.com", IsActive: true, AccessToken: "t0"},
	}, newRecordingStore(), &rollingAuth{}, &fakeRefresher{}, nil, Options{})
	runner := NewRunner(rot)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			runner.Run(context.Background())
		}
	}()

	for i := 0; i < 500; i++ {
		for _, acc := range runner.Accounts() {
			if acc.Email == "" {
				t.Error("torn account read")
			}
		}
		runner.Last()
	}
	<-done
}
