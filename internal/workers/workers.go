package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"punchcard/internal/platform/auth"
)

// SweepExpiredTokens deletes token records whose expiry has passed.
// Revocation state does not matter once a record is expired; validity
// checks never consult deleted rows.
func SweepExpiredTokens(ctx context.Context, store auth.TokenStore) error {
	deleted, err := store.DeleteExpired(ctx, time.Now().Unix())
	if err != nil {
		return err
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("swept expired tokens")
	}
	return nil
}
