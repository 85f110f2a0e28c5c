package ports

import (
	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// AttestationLog is the append-only event log the trust evaluator folds
// over. Events are never mutated or deleted; the current trust tier is
// recomputable from history alone.
type AttestationLog interface {
	// Append adds an event to the log.
	Append(event entities.AttestationEvent) error

	// Events returns a publisher's events in append order.
	Events(publisherID string) ([]entities.AttestationEvent, error)
}

// RecordStore caches attestation records by content hash so attesting
// an unchanged artifact is a no-op.
type RecordStore interface {
	// Get returns the record for the content hash, or nil if absent.
	Get(contentHash string) (*entities.AttestationRecord, error)

	// Put stores a record under its subject's content hash.
	Put(record *entities.AttestationRecord) error
}

// RatingSource supplies publisher marketplace ratings for trust tier
// promotion. Ratings are on a 0-5 scale.
type RatingSource interface {
	Rating(publisherID string) (float64, error)
}

// RatingSourceFunc adapts a function to the RatingSource interface.
type RatingSourceFunc func(publisherID string) (float64, error)

func (f RatingSourceFunc) Rating(publisherID string) (float64, error) { return f(publisherID) }
