package vote

import (
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/calhealth/trustscore/pkg/apierr"
)

const shardCount = 32

// clientState holds one client identity's rate-limit state: a per-facility
// limiter for the 60s-per-vote bucket, and a single global limiter for the
// 20-per-10-minutes-across-all-facilities bucket (spec §4.7).
type clientState struct {
	perFacility map[string]*rate.Limiter
	global      *rate.Limiter
	lastAccess  time.Time
}

type shard struct {
	mu      sync.Mutex
	clients map[string]*clientState
}

// Limiter enforces the two-bucket per-client-identity vote rate limit,
// sharded by a hash of the client identity to bound lock contention under
// load (spec §9's "shard by client-identity hash" note).
type Limiter struct {
	shards              [shardCount]*shard
	perFacilityInterval time.Duration
	globalLimit         int
	globalWindow        time.Duration
	stopCh              chan struct{}
}

func NewLimiter(perFacilityInterval time.Duration, globalLimit int, globalWindow time.Duration) *Limiter {
	l := &Limiter{
		perFacilityInterval: perFacilityInterval,
		globalLimit:         globalLimit,
		globalWindow:        globalWindow,
		stopCh:              make(chan struct{}),
	}
	for i := range l.shards {
		l.shards[i] = &shard{clients: make(map[string]*clientState)}
	}
	return l
}

func (l *Limiter) shardFor(clientID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientID))
	return l.shards[h.Sum32()%shardCount]
}

// Allow checks and consumes one vote attempt for (clientID, facilityID)
// against both buckets, returning apierr.RateLimited if either is exceeded.
func (l *Limiter) Allow(clientID, facilityID string) error {
	sh := l.shardFor(clientID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.clients[clientID]
	if !ok {
		state = &clientState{
			perFacility: make(map[string]*rate.Limiter),
			global:      rate.NewLimiter(rate.Every(l.globalWindow/time.Duration(l.globalLimit)), l.globalLimit),
		}
		sh.clients[clientID] = state
	}
	state.lastAccess = time.Now()

	fl, ok := state.perFacility[facilityID]
	if !ok {
		fl = rate.NewLimiter(rate.Every(l.perFacilityInterval), 1)
		state.perFacility[facilityID] = fl
	}

	if !fl.Allow() {
		return apierr.RateLimited("vote rate limit exceeded for this facility; retry after %s", l.perFacilityInterval)
	}
	if !state.global.Allow() {
		return apierr.RateLimited("global vote rate limit exceeded; retry after the %s window resets", l.globalWindow)
	}
	return nil
}

// StartCleanup periodically evicts client state idle longer than the
// global window, the widest of the two buckets.
func (l *Limiter) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	threshold := time.Now().Add(-l.globalWindow)
	for _, sh := range l.shards {
		sh.mu.Lock()
		for id, state := range sh.clients {
			if state.lastAccess.Before(threshold) {
				delete(sh.clients, id)
			}
		}
		sh.mu.Unlock()
	}
}

// Stop ends the cleanup loop.
func (l *Limiter) Stop() {
	close(l.stopCh)
}
