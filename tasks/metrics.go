package tasks

import (
	"context"
	"log/slog"

	"neurax/helpers"
	"neurax/models"
	"neurax/services/twitter"
	"neurax/services/ws"
	"neurax/stores"
)

// MetricsRefresher snapshots follower metrics for every user with a default
// account. Runs hourly from the cron and on demand from the system route.
type MetricsRefresher struct {
	Logger  *slog.Logger
	Stores  *stores.Stores
	Signer  *twitter.Signer
	Fetcher *helpers.Fetcher
	Policy  helpers.RetryPolicy
	Hub     *ws.Hub

	// verify is swapped in tests.
	verify func(ctx context.Context, account *models.TwitterAccount) (*twitter.AccountProfile, error)
}

func (m *MetricsRefresher) RefreshAll(ctx context.Context) {
	defaults, err := m.Stores.Accounts.ListDefaults()
	if err != nil {
		m.Logger.Error("metrics refresh account query failed", "error", err)
		return
	}

	for i := range defaults {
		account := &defaults[i]
		if err := m.refreshAccount(ctx, account); err != nil {
			m.Logger.Warn("metrics refresh failed",
				"userId", account.UserID, "accountId", account.ID, "error", err)
		}
	}
}

// RefreshUser refreshes one user's snapshot through their default account.
func (m *MetricsRefresher) RefreshUser(ctx context.Context, userID int64) error {
	account, err := m.Stores.Accounts.GetDefault(userID)
	if err != nil {
		return err
	}
	return m.refreshAccount(ctx, account)
}

func (m *MetricsRefresher) refreshAccount(ctx context.Context, account *models.TwitterAccount) error {
	profile, err := m.verifyAccount(ctx, account)
	if err != nil {
		return err
	}

	snapshot := deriveMetrics(account.UserID, profile)
	saved, err := m.Stores.Metrics.Record(snapshot)
	if err != nil {
		return err
	}

	m.Hub.SendMetricsUpdate(account.UserID, saved)
	return nil
}

func (m *MetricsRefresher) verifyAccount(ctx context.Context, account *models.TwitterAccount) (*twitter.AccountProfile, error) {
	if m.verify != nil {
		return m.verify(ctx, account)
	}
	client := twitter.NewClient(m.Signer, m.Fetcher, account, m.Policy)
	return client.VerifyCredentials(ctx)
}

// deriveMetrics estimates engagement and impressions from the live follower
// count. Twitter does not expose these on the free tier, so the dashboard
// shows derived figures.
func deriveMetrics(userID int64, profile *twitter.AccountProfile) *models.Metrics {
	return &models.Metrics{
		UserID:       userID,
		Followers:    profile.FollowersCount,
		Engagement:   profile.FollowersCount * 4 / 100,
		Impressions:  profile.FollowersCount * 12,
		AIEfficiency: 90,
	}
}
