// Package attestation generates and verifies signed build attestation
// records: the diff between an extension's declared capabilities and
// the capabilities its artifact actually references.
package attestation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
	"github.com/oxidekit/oxidekit-core/internal/keylock"
)

// AnalyzerVersion is stamped into every record so consumers can tell
// which extraction logic produced it.
const AnalyzerVersion = "1.0.0"

// Check names emitted by the engine.
const (
	CheckManifestParsed    = "manifest-parsed"
	CheckCapabilityExtract = "capability-extraction"
	CheckCapabilityMatch   = "capability-match"
	CheckSBOMGenerated     = "sbom-generated"
	CheckVulnerabilityScan = "vulnerability-scan"
)

type engineConfig struct {
	extractor ports.UsageExtractor
	sbom      ports.ComponentExtractor
	analyzer  ports.VulnerabilityAnalyzer
	store     ports.RecordStore
	log       ports.AttestationLog
	now       func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

// WithExtractor overrides the capability extraction strategy (default:
// static import scanning).
func WithExtractor(x ports.UsageExtractor) EngineOption {
	return func(c *engineConfig) { c.extractor = x }
}

// WithComponentExtractor overrides the SBOM walker.
func WithComponentExtractor(x ports.ComponentExtractor) EngineOption {
	return func(c *engineConfig) { c.sbom = x }
}

// WithAnalyzer plugs in a vulnerability analyzer (default: none,
// records report "not-scanned").
func WithAnalyzer(a ports.VulnerabilityAnalyzer) EngineOption {
	return func(c *engineConfig) { c.analyzer = a }
}

// WithRecordStore attaches a cache so unchanged artifacts reuse their
// existing record.
func WithRecordStore(s ports.RecordStore) EngineOption {
	return func(c *engineConfig) { c.store = s }
}

// WithEventLog attaches the append-only log feeding the trust
// evaluator. Every fresh attestation appends one event.
func WithEventLog(l ports.AttestationLog) EngineOption {
	return func(c *engineConfig) { c.log = l }
}

// WithClock overrides time for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(c *engineConfig) { c.now = now }
}

// Engine produces signed attestation records.
type Engine struct {
	cfg    engineConfig
	signer ports.Signer
	keys   keylock.KeyedMutex // serializes attestation per content hash
	enc    cbor.EncMode
}

// NewEngine creates an attestation engine signing with the given key.
func NewEngine(signer ports.Signer, opts ...EngineOption) (*Engine, error) {
	cfg := engineConfig{
		extractor: NewStaticExtractor(),
		sbom:      NewDependencyWalker(),
		analyzer:  NotScannedAnalyzer{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to build canonical encoder: %w", err)
	}
	return &Engine{cfg: cfg, signer: signer, enc: enc}, nil
}

// Attest produces the signed record for a bundle. Records are
// content-addressed: attesting a bundle whose bytes are unchanged
// returns the cached record without re-analysis, and two concurrent
// attestations of the same hash produce one record. Failures inside
// extraction or SBOM generation yield an Error-verdict record, not a
// Match.
func (e *Engine) Attest(ctx context.Context, bundle *entities.Bundle) (*entities.AttestationRecord, error) {
	if bundle.Manifest == nil {
		return nil, fmt.Errorf("%w: bundle manifest not validated", entities.ErrAnalysis)
	}

	hash := ContentHash(bundle)
	unlock := e.keys.Lock(hash)
	defer unlock()

	if e.cfg.store != nil {
		cached, err := e.cfg.store.Get(hash)
		if err != nil {
			return nil, fmt.Errorf("record store lookup failed: %w", err)
		}
		if cached != nil {
			slog.Debug("attestation cache hit", "extension", bundle.Manifest.ExtensionID, "hash", hash)
			return cached, nil
		}
	}

	record := e.analyze(ctx, bundle, hash)

	payload, err := e.enc.Marshal(record.Payload())
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed payload: %w", err)
	}
	record.Signature, err = e.signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign record: %w", err)
	}

	if e.cfg.store != nil {
		if err := e.cfg.store.Put(record); err != nil {
			return nil, fmt.Errorf("failed to persist record: %w", err)
		}
	}
	if e.cfg.log != nil {
		event := entities.AttestationEvent{
			PublisherID: bundle.Manifest.Publisher,
			ExtensionID: bundle.Manifest.ExtensionID,
			ContentHash: hash,
			Verdict:     record.Verdict,
			SBOMValid:   len(record.SBOM) > 0,
			OccurredAt:  record.GeneratedAt,
		}
		if err := e.cfg.log.Append(event); err != nil {
			return nil, fmt.Errorf("failed to append attestation event: %w", err)
		}
	}

	slog.Info("attestation complete",
		"extension", bundle.Manifest.ExtensionID,
		"hash", hash,
		"verdict", record.Verdict,
	)
	return record, nil
}

// analyze runs extraction, diffing, SBOM generation and scanning,
// collecting per-step checks. Any step failure flips the verdict to
// Error and is recorded as a failed check rather than aborting the run;
// the record still documents everything that could be determined.
func (e *Engine) analyze(ctx context.Context, bundle *entities.Bundle, hash string) *entities.AttestationRecord {
	record := &entities.AttestationRecord{
		Subject: entities.Subject{
			Name:        bundle.Manifest.ExtensionID,
			Version:     bundle.Manifest.Version,
			ContentHash: hash,
		},
		Declared:        entities.CanonicalSet(bundle.Manifest.AllCapabilities()),
		AnalyzerVersion: AnalyzerVersion,
		GeneratedAt:     e.cfg.now().UTC(),
	}
	record.Checks = append(record.Checks, entities.Check{
		Name: CheckManifestParsed, Passed: true, Severity: entities.SeverityInfo,
	})

	failed := false

	observed, err := e.cfg.extractor.Extract(ctx, bundle)
	if err != nil {
		failed = true
		record.Checks = append(record.Checks, entities.Check{
			Name: CheckCapabilityExtract, Passed: false,
			Detail: err.Error(), Severity: entities.SeverityCritical,
		})
	} else {
		record.Observed = entities.CanonicalSet(observed)
		record.Checks = append(record.Checks, entities.Check{
			Name: CheckCapabilityExtract, Passed: true, Severity: entities.SeverityInfo,
		})

		uncovered := entities.Uncovered(observed, bundle.Manifest.AllCapabilities())
		if len(uncovered) == 0 {
			record.Checks = append(record.Checks, entities.Check{
				Name: CheckCapabilityMatch, Passed: true, Severity: entities.SeverityInfo,
			})
		} else {
			record.Verdict = entities.VerdictMismatch
			record.Checks = append(record.Checks, entities.Check{
				Name: CheckCapabilityMatch, Passed: false,
				Detail:   fmt.Sprintf("undeclared capabilities: %v", entities.CanonicalSet(uncovered)),
				Severity: entities.SeverityCritical,
			})
		}
	}

	sbom, err := e.cfg.sbom.Components(ctx, bundle)
	if err != nil {
		failed = true
		record.Checks = append(record.Checks, entities.Check{
			Name: CheckSBOMGenerated, Passed: false,
			Detail: err.Error(), Severity: entities.SeverityError,
		})
	} else {
		record.SBOM = sbom
		record.Checks = append(record.Checks, entities.Check{
			Name: CheckSBOMGenerated, Passed: true, Severity: entities.SeverityInfo,
		})
	}

	counts, status, err := e.cfg.analyzer.Analyze(ctx, bundle)
	if err != nil {
		failed = true
		record.ScanStatus = ScanFailed
		record.Checks = append(record.Checks, entities.Check{
			Name: CheckVulnerabilityScan, Passed: false,
			Detail: err.Error(), Severity: entities.SeverityError,
		})
	} else {
		record.Vulnerabilities = counts
		record.ScanStatus = status
		check := entities.Check{
			Name: CheckVulnerabilityScan, Passed: true, Severity: entities.SeverityInfo,
		}
		if status == ScanFailed {
			failed = true
			check.Passed = false
			check.Severity = entities.SeverityCritical
			check.Detail = fmt.Sprintf("%d findings (%d critical)", counts.Total(), counts.Critical)
		}
		record.Checks = append(record.Checks, check)
	}

	switch {
	case failed:
		record.Verdict = entities.VerdictError
	case record.Verdict == "":
		record.Verdict = entities.VerdictMatch
	}
	return record
}
