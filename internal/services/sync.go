package services

import (
	"context"

	"ridemate/internal/models"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RefreshAll refreshes the collections concurrently and returns the first
// error. A failing collection does not cancel the others.
func RefreshAll(ctx context.Context, collections ...Synchronizer) error {
	var g errgroup.Group
	for _, c := range collections {
		g.Go(func() error {
			return c.Refresh(ctx)
		})
	}
	return g.Wait()
}

// BindCollections refreshes the collections whenever an identity signs in and
// empties them when it signs out
func BindCollections(session *SessionStore, collections ...Synchronizer) {
	session.OnIdentityChange(func(ctx context.Context, id *models.Identity) {
		if id == nil {
			for _, c := range collections {
				c.Reset()
			}
			return
		}
		if err := RefreshAll(ctx, collections...); err != nil {
			log.Error().Err(err).Str("user_id", id.ID).Msg("Failed to refresh collections")
		}
	})
}
