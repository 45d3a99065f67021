package trophy

import "gorm.io/gorm"

// Service bundles the store, ledger and leaderboard over one database handle.
// Adapters depend on it through their own narrow interfaces.
type Service struct {
	*Store
	*Ledger
	*Leaderboard
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	return &Service{
		Store:       NewStore(db, opts...),
		Ledger:      NewLedger(db, opts...),
		Leaderboard: NewLeaderboard(db, opts...),
	}
}
