package gitvc

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const refRetryMaxElapsed = 5 * time.Second

func newRefRetryBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = refRetryMaxElapsed
	return bo
}

// isRetryableGitError returns true for transient lock contention: another
// git process briefly holding a ref or index lock.
func isRetryableGitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "cannot lock ref") {
		return true
	}
	if strings.Contains(errStr, "unable to create") && strings.Contains(errStr, ".lock") {
		return true
	}
	if strings.Contains(errStr, "file exists") && strings.Contains(errStr, ".lock") {
		return true
	}
	return false
}

// withRefRetry retries ref mutations on transient lock contention. All
// other failures are permanent and returned immediately.
func (s *Store) withRefRetry(ctx context.Context, op func() error) error {
	bo := newRefRetryBackoff()
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isRetryableGitError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}
