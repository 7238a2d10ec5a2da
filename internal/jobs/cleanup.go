package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ResetTokenPurger removes consumed and long-expired password reset tokens.
type ResetTokenPurger interface {
	DeleteStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// InvitationPurger removes unclaimed invitations past their expiry.
type InvitationPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Expired reset tokens stay readable this long so late attempts report "expired".
const resetTokenRetention = 24 * time.Hour

type CleanupJob struct {
	resetTokens ResetTokenPurger
	invitations InvitationPurger
	interval    time.Duration
	now         func() time.Time
	done        chan struct{}
}

func NewCleanupJob(resetTokens ResetTokenPurger, invitations InvitationPurger, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		resetTokens: resetTokens,
		invitations: invitations,
		interval:    interval,
		now:         time.Now,
		done:        make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if j.resetTokens != nil {
		cutoff := j.now().Add(-resetTokenRetention)
		j.runCleanup(ctx, "password reset tokens", func(ctx context.Context) (int64, error) {
			return j.resetTokens.DeleteStale(ctx, cutoff)
		})
	}
	if j.invitations != nil {
		j.runCleanup(ctx, "team invitations", j.invitations.DeleteExpired)
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
