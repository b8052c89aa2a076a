package stores

import "github.com/pocketbase/dbx"

// Stores bundles the per-table stores that share one database handle.
type Stores struct {
	Users    *UserStore
	Accounts *AccountStore
	Posts    *PostStore
	Trading  *TradingStore
	Metrics  *MetricsStore
	Ideas    *IdeaStore
	Sessions *SessionStore
}

func New(db dbx.Builder) *Stores {
	return &Stores{
		Users:    NewUserStore(db),
		Accounts: NewAccountStore(db),
		Posts:    NewPostStore(db),
		Trading:  NewTradingStore(db),
		Metrics:  NewMetricsStore(db),
		Ideas:    NewIdeaStore(db),
		Sessions: NewSessionStore(DefaultSessionTTL),
	}
}
