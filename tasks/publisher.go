package tasks

import (
	"context"
	"log/slog"
	"time"

	"neurax/helpers"
	"neurax/models"
	"neurax/services/twitter"
	"neurax/services/ws"
	"neurax/stores"
)

// Publisher pushes posts out to the provider: immediately for "post now",
// and from the cron for scheduled posts.
type Publisher struct {
	Logger  *slog.Logger
	Stores  *stores.Stores
	Signer  *twitter.Signer
	Fetcher *helpers.Fetcher
	Policy  helpers.RetryPolicy
	Hub     *ws.Hub

	// send is swapped in tests.
	send func(ctx context.Context, account *models.TwitterAccount, content, imageURL string) (string, error)
}

// PublishPost sends one post through the account it is bound to, falling
// back to the user's default account. The post record tracks the outcome:
// published with the tweet id, or failed with the error in its logs.
func (p *Publisher) PublishPost(ctx context.Context, post *models.Post) error {
	account, err := p.resolveAccount(post)
	if err != nil {
		p.fail(post, err)
		return err
	}

	tweetID, err := p.sendTweet(ctx, account, post.Content, post.ImageURL)
	if err != nil {
		p.fail(post, err)
		return err
	}

	if err := p.Stores.Posts.MarkPublished(post.ID, tweetID); err != nil {
		p.Logger.Error("post publish bookkeeping failed", "postId", post.ID, "error", err)
		return err
	}

	p.Logger.Info("post published", "postId", post.ID, "tweetId", tweetID, "accountId", account.ID)
	published, err := p.Stores.Posts.Get(post.UserID, post.ID)
	if err == nil {
		p.Hub.SendContentUpdate(post.UserID, published)
	}
	return nil
}

// PublishDue is the cron body: pick up ripe scheduled posts, flip them to
// sending, and push each one. A failing post is recorded and skipped; the
// rest of the batch still goes out.
func (p *Publisher) PublishDue(ctx context.Context) {
	due, err := p.Stores.Posts.ListDue(time.Now())
	if err != nil {
		p.Logger.Error("scheduled post query failed", "error", err)
		return
	}

	for i := range due {
		post := &due[i]
		if err := p.Stores.Posts.SetStatus(post.ID, models.PostStatusSending, ""); err != nil {
			p.Logger.Error("post status update failed", "postId", post.ID, "error", err)
			continue
		}
		if err := p.PublishPost(ctx, post); err != nil {
			p.Logger.Error("scheduled post publish failed", "postId", post.ID, "error", err)
		}
	}
}

func (p *Publisher) sendTweet(ctx context.Context, account *models.TwitterAccount, content, imageURL string) (string, error) {
	if p.send != nil {
		return p.send(ctx, account, content, imageURL)
	}
	client := twitter.NewClient(p.Signer, p.Fetcher, account, p.Policy)
	return client.PostTweet(ctx, content, imageURL)
}

func (p *Publisher) resolveAccount(post *models.Post) (*models.TwitterAccount, error) {
	if post.TwitterAccountID != 0 {
		return p.Stores.Accounts.Get(post.UserID, post.TwitterAccountID)
	}
	return p.Stores.Accounts.GetDefault(post.UserID)
}

func (p *Publisher) fail(post *models.Post, cause error) {
	if err := p.Stores.Posts.SetStatus(post.ID, models.PostStatusFailed, cause.Error()); err != nil {
		p.Logger.Error("post failure bookkeeping failed", "postId", post.ID, "error", err)
	}
	failed, err := p.Stores.Posts.Get(post.UserID, post.ID)
	if err == nil {
		p.Hub.SendContentUpdate(post.UserID, failed)
	}
}
