package trust_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
	"github.com/oxidekit/oxidekit-core/infrastructure/attestlog"
	"github.com/oxidekit/oxidekit-core/trust"
)

const publisher = "example-corp"

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func event(verdict entities.Verdict, at time.Time) entities.AttestationEvent {
	return entities.AttestationEvent{
		PublisherID: publisher,
		ExtensionID: "com.example.notes",
		ContentHash: "deadbeef",
		Verdict:     verdict,
		SBOMValid:   true,
		OccurredAt:  at,
	}
}

func logWith(t *testing.T, events ...entities.AttestationEvent) *attestlog.MemoryLog {
	t.Helper()
	log := attestlog.NewMemoryLog()
	for _, ev := range events {
		require.NoError(t, log.Append(ev))
	}
	return log
}

func fixedRating(r float64) ports.RatingSource {
	return ports.RatingSourceFunc(func(string) (float64, error) { return r, nil })
}

func TestEvaluate(t *testing.T) {
	t.Run("should start publishers at unverified", func(t *testing.T) {
		e := trust.NewEvaluator(logWith(t), nil)
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierUnverified, state.Tier)
		assert.Zero(t, state.IncidentCount)
	})

	t.Run("should promote to verified on a clean attestation", func(t *testing.T) {
		e := trust.NewEvaluator(logWith(t, event(entities.VerdictMatch, t0)), nil)
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierVerified, state.Tier)
		assert.Equal(t, t0, state.Since)
	})

	t.Run("should not promote on a match without a valid sbom", func(t *testing.T) {
		ev := event(entities.VerdictMatch, t0)
		ev.SBOMValid = false
		e := trust.NewEvaluator(logWith(t, ev), nil)
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierUnverified, state.Tier)
	})

	t.Run("should demote one tier on mismatch", func(t *testing.T) {
		e := trust.NewEvaluator(logWith(t,
			event(entities.VerdictMatch, t0),
			event(entities.VerdictMismatch, t0.Add(time.Hour)),
		), nil)
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierUnverified, state.Tier)
		assert.Equal(t, 1, state.IncidentCount)
		assert.Equal(t, t0.Add(time.Hour), state.Since)
	})

	t.Run("should count incidents even at the floor", func(t *testing.T) {
		e := trust.NewEvaluator(logWith(t,
			event(entities.VerdictMismatch, t0),
			event(entities.VerdictMismatch, t0.Add(time.Hour)),
		), nil)
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierUnverified, state.Tier)
		assert.Equal(t, 2, state.IncidentCount)
	})

	t.Run("should treat analysis errors as neutral", func(t *testing.T) {
		e := trust.NewEvaluator(logWith(t,
			event(entities.VerdictMatch, t0),
			event(entities.VerdictError, t0.Add(time.Hour)),
		), nil)
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierVerified, state.Tier)
	})

	t.Run("should be a pure function of the history", func(t *testing.T) {
		e := trust.NewEvaluator(logWith(t,
			event(entities.VerdictMatch, t0),
			event(entities.VerdictMismatch, t0.Add(time.Hour)),
			event(entities.VerdictMatch, t0.Add(2*time.Hour)),
		), nil)

		first, err := e.Evaluate(publisher)
		require.NoError(t, err)
		second, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, first, second, "re-evaluation must not drift")
	})
}

func TestPromotion(t *testing.T) {
	afterDwell := func() time.Time { return t0.Add(trust.DefaultDwell + time.Hour) }
	beforeDwell := func() time.Time { return t0.Add(trust.DefaultDwell - time.Hour) }
	cleanLog := func(t *testing.T) *attestlog.MemoryLog {
		return logWith(t, event(entities.VerdictMatch, t0))
	}

	t.Run("should promote after the dwell with a high rating", func(t *testing.T) {
		e := trust.NewEvaluator(cleanLog(t), fixedRating(4.6), trust.WithClock(afterDwell))
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierTrustedPublisher, state.Tier)
	})

	t.Run("should withhold promotion before the dwell elapses", func(t *testing.T) {
		e := trust.NewEvaluator(cleanLog(t), fixedRating(4.6), trust.WithClock(beforeDwell))
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierVerified, state.Tier)
	})

	t.Run("should withhold promotion below the rating floor", func(t *testing.T) {
		e := trust.NewEvaluator(cleanLog(t), fixedRating(3.9), trust.WithClock(afterDwell))
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierVerified, state.Tier)
	})

	t.Run("should withhold promotion when ratings are unavailable", func(t *testing.T) {
		failing := ports.RatingSourceFunc(func(string) (float64, error) {
			return 0, errors.New("marketplace unreachable")
		})
		e := trust.NewEvaluator(cleanLog(t), failing, trust.WithClock(afterDwell))
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierVerified, state.Tier, "lookup failure must not promote")
	})

	t.Run("should never promote without a rating source", func(t *testing.T) {
		e := trust.NewEvaluator(cleanLog(t), nil, trust.WithClock(afterDwell))
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierVerified, state.Tier)
	})

	t.Run("should demote an earned trusted publisher one tier on mismatch", func(t *testing.T) {
		mismatchAt := t0.Add(trust.DefaultDwell + 24*time.Hour)
		log := logWith(t,
			event(entities.VerdictMatch, t0),
			event(entities.VerdictMismatch, mismatchAt),
		)
		now := func() time.Time { return mismatchAt.Add(time.Hour) }
		e := trust.NewEvaluator(log, fixedRating(5.0), trust.WithClock(now))

		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierVerified, state.Tier,
			"a mismatch drops TrustedPublisher to Verified, not further")
		assert.Equal(t, 1, state.IncidentCount)
		assert.Equal(t, mismatchAt, state.Since)
	})

	t.Run("should re-earn trusted after a fresh dwell at verified", func(t *testing.T) {
		mismatchAt := t0.Add(trust.DefaultDwell + 24*time.Hour)
		log := logWith(t,
			event(entities.VerdictMatch, t0),
			event(entities.VerdictMismatch, mismatchAt),
		)
		now := func() time.Time { return mismatchAt.Add(trust.DefaultDwell + time.Hour) }
		e := trust.NewEvaluator(log, fixedRating(5.0), trust.WithClock(now))

		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierTrustedPublisher, state.Tier)
	})

	t.Run("should restart the dwell after a demotion", func(t *testing.T) {
		log := logWith(t,
			event(entities.VerdictMatch, t0),
			event(entities.VerdictMismatch, t0.Add(trust.DefaultDwell)),
			event(entities.VerdictMatch, t0.Add(trust.DefaultDwell+time.Hour)),
		)
		now := func() time.Time { return t0.Add(trust.DefaultDwell + 2*time.Hour) }
		e := trust.NewEvaluator(log, fixedRating(5.0), trust.WithClock(now))
		state, err := e.Evaluate(publisher)
		require.NoError(t, err)
		assert.Equal(t, entities.TierVerified, state.Tier)
	})
}
