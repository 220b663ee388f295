package scheduler

import (
	"github.com/rs/zerolog"
)

// CachePurger removes expired cache entries.
type CachePurger interface {
	Purge() (int64, error)
}

// PurgeCacheJob evicts expired calculation cache rows so the cache database
// does not grow without bound.
type PurgeCacheJob struct {
	cache CachePurger
	log   zerolog.Logger
}

// NewPurgeCacheJob creates a new cache purge job
func NewPurgeCacheJob(cache CachePurger, log zerolog.Logger) *PurgeCacheJob {
	return &PurgeCacheJob{
		cache: cache,
		log:   log.With().Str("job", "purge_cache").Logger(),
	}
}

// Name returns the job name
func (j *PurgeCacheJob) Name() string {
	return "purge_cache"
}

// Run deletes expired cache entries.
func (j *PurgeCacheJob) Run() error {
	purged, err := j.cache.Purge()
	if err != nil {
		return err
	}
	if purged > 0 {
		j.log.Info().Int64("purged", purged).Msg("Purged expired cache entries")
	}
	return nil
}
