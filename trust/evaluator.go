// Package trust derives publisher trust tiers from attestation
// history. Tiers are never stored authoritatively: the evaluator folds
// over the append-only attestation log, so the current tier is always
// recomputable and publishers cannot self-escalate.
package trust

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// Promotion thresholds. Demotion is immediate; promotion is slow.
const (
	// DefaultDwell is how long a publisher must hold Verified with a
	// clean record before TrustedPublisher promotion.
	DefaultDwell = 30 * 24 * time.Hour

	// DefaultMinRating is the marketplace rating floor for promotion,
	// on a 0-5 scale.
	DefaultMinRating = 4.0
)

type evaluatorConfig struct {
	dwell     time.Duration
	minRating float64
	now       func() time.Time
}

// Option configures an Evaluator.
type Option func(*evaluatorConfig)

// WithDwell overrides the Verified dwell time required for promotion.
func WithDwell(d time.Duration) Option {
	return func(c *evaluatorConfig) { c.dwell = d }
}

// WithMinRating overrides the rating floor for promotion.
func WithMinRating(r float64) Option {
	return func(c *evaluatorConfig) { c.minRating = r }
}

// WithClock overrides time for tests.
func WithClock(now func() time.Time) Option {
	return func(c *evaluatorConfig) { c.now = now }
}

// Evaluator computes trust tiers from attestation events and
// marketplace ratings.
type Evaluator struct {
	log     ports.AttestationLog
	ratings ports.RatingSource
	cfg     evaluatorConfig
}

// NewEvaluator creates an evaluator over the given log. ratings may be
// nil, in which case no publisher reaches TrustedPublisher.
func NewEvaluator(log ports.AttestationLog, ratings ports.RatingSource, opts ...Option) *Evaluator {
	cfg := evaluatorConfig{
		dwell:     DefaultDwell,
		minRating: DefaultMinRating,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Evaluator{log: log, ratings: ratings, cfg: cfg}
}

// Evaluate folds the publisher's event history into its current tier.
//
// The fold is asymmetric on purpose: a single mismatch demotes exactly
// one tier the moment it is appended, while promotion to
// TrustedPublisher needs an unbroken 30-day dwell at Verified plus a
// rating above the floor. Promotion is re-checked at each event's
// timestamp, so the tier held when a mismatch lands is the one demoted:
// a publisher whose dwell had already earned TrustedPublisher drops to
// Verified, never straight to Unverified.
func (e *Evaluator) Evaluate(publisherID string) (entities.TrustTier, error) {
	events, err := e.log.Events(publisherID)
	if err != nil {
		return entities.TrustTier{}, fmt.Errorf("failed to load attestation history: %w", err)
	}

	state := entities.TrustTier{
		PublisherID: publisherID,
		Tier:        entities.TierUnverified,
	}
	rating := e.lazyRating(publisherID)

	promote := func(at time.Time) {
		if state.Tier != entities.TierVerified || e.ratings == nil {
			return
		}
		if at.Sub(state.Since) < e.cfg.dwell {
			return
		}
		if r, ok := rating(); ok && r >= e.cfg.minRating {
			state.Tier = entities.TierTrustedPublisher
		}
	}

	for _, ev := range events {
		promote(ev.OccurredAt)
		switch ev.Verdict {
		case entities.VerdictMatch:
			if state.Tier == entities.TierUnverified && ev.SBOMValid {
				state.Tier = entities.TierVerified
				state.Since = ev.OccurredAt
			}
		case entities.VerdictMismatch:
			state.IncidentCount++
			if state.Tier > entities.TierUnverified {
				state.Tier--
				state.Since = ev.OccurredAt
			}
		case entities.VerdictError:
			// An analysis failure neither promotes nor demotes.
		}
	}

	promote(e.cfg.now())
	return state, nil
}

// lazyRating looks the publisher's rating up at most once per
// evaluation. A lookup failure withholds promotion rather than failing
// the fold.
func (e *Evaluator) lazyRating(publisherID string) func() (float64, bool) {
	var (
		fetched bool
		value   float64
		ok      bool
	)
	return func() (float64, bool) {
		if fetched {
			return value, ok
		}
		fetched = true
		r, err := e.ratings.Rating(publisherID)
		if err != nil {
			slog.Warn("rating lookup failed; promotion withheld",
				"publisher", publisherID, "error", err)
			return 0, false
		}
		value, ok = r, true
		return value, ok
	}
}
