package broker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxidekit/oxidekit-core/broker"
	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/policy"
	"github.com/oxidekit/oxidekit-core/domain/ports"
)

const extID = "com.example.reporter"

// memStore implements ports.DecisionStore in memory.
type memStore struct {
	mu        sync.Mutex
	decisions map[string]ports.StoredDecision
}

func newMemStore() *memStore {
	return &memStore{decisions: make(map[string]ports.StoredDecision)}
}

func (s *memStore) Lookup(extensionID, capabilityKey string) (*ports.StoredDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.decisions[extensionID+"/"+capabilityKey]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *memStore) Record(decision ports.StoredDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[decision.ExtensionID+"/"+decision.CapabilityKey] = decision
	return nil
}

// captureSink records prompt events.
type captureSink struct {
	mu     sync.Mutex
	events []ports.PromptEvent
}

func (s *captureSink) Prompt(event ports.PromptEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) last(t *testing.T) ports.PromptEvent {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.events)
	return s.events[len(s.events)-1]
}

func readDataCap() entities.Capability {
	return entities.Capability{
		Category: entities.CategoryFilesystem,
		Scope:    "read:/data/**",
		Reason:   "reads workspace files",
	}
}

func boundManifest() *entities.Manifest {
	return &entities.Manifest{
		ExtensionID: extID,
		Version:     "1.0.0",
		Publisher:   "example-corp",
		Required:    []entities.Capability{readDataCap()},
	}
}

// noSymlinks keeps filesystem normalization off the real filesystem in
// tests.
func noSymlinks() *policy.Engine {
	return policy.NewEngine(policy.WithSymlinkResolution(false))
}

func TestBrokerRequest(t *testing.T) {
	t.Run("should defer to prompt and grant on allow_once", func(t *testing.T) {
		sink := &captureSink{}
		b := broker.New(broker.WithPromptSink(sink), broker.WithPolicyEngine(noSymlinks()))
		b.Bind(extID, boundManifest())

		decision := b.Request(extID, readDataCap())
		require.Equal(t, broker.OutcomeDeferred, decision.Outcome)

		event := sink.last(t)
		assert.Equal(t, decision.PromptID, event.PromptID)
		assert.Equal(t, entities.RiskHigh, event.Risk)
		assert.Contains(t, event.Description, "reads workspace files")

		resolved, err := b.Resolve(decision.PromptID, ports.ResponseAllowOnce)
		require.NoError(t, err)
		require.Equal(t, broker.OutcomeGranted, resolved.Outcome)
		require.NotNil(t, resolved.Token)
		assert.Equal(t, extID, resolved.Token.Grantee)
	})

	t.Run("should deny undeclared capability", func(t *testing.T) {
		b := broker.New(broker.WithPolicyEngine(noSymlinks()))
		b.Bind(extID, boundManifest())

		decision := b.Request(extID, entities.Capability{
			Category: entities.CategoryShell,
			Scope:    "exec:rm",
		})
		assert.Equal(t, broker.OutcomeDenied, decision.Outcome)
		assert.Contains(t, decision.Reason, "not declared")
	})

	t.Run("should deny without a prompt sink", func(t *testing.T) {
		b := broker.New(broker.WithPolicyEngine(noSymlinks()))
		b.Bind(extID, boundManifest())

		decision := b.Request(extID, readDataCap())
		assert.Equal(t, broker.OutcomeDenied, decision.Outcome)
	})

	t.Run("should grant silently from a persisted allow", func(t *testing.T) {
		store := newMemStore()
		require.NoError(t, store.Record(ports.StoredDecision{
			ExtensionID:   extID,
			CapabilityKey: readDataCap().Canonical(),
			Kind:          ports.DecisionAllow,
			DecidedAt:     time.Now(),
		}))

		sink := &failSink{t: t}
		b := broker.New(
			broker.WithDecisionStore(store),
			broker.WithPromptSink(sink),
			broker.WithPolicyEngine(noSymlinks()),
		)
		b.Bind(extID, boundManifest())

		decision := b.Request(extID, readDataCap())
		assert.Equal(t, broker.OutcomeGranted, decision.Outcome)
	})

	t.Run("should suppress re-prompt during denial cool-down", func(t *testing.T) {
		store := newMemStore()
		sink := &countSink{}
		now := time.Now()
		b := broker.New(
			broker.WithDecisionStore(store),
			broker.WithPromptSink(sink),
			broker.WithPolicyEngine(noSymlinks()),
			broker.WithClock(func() time.Time { return now }),
		)
		b.Bind(extID, boundManifest())

		decision := b.Request(extID, readDataCap())
		require.Equal(t, broker.OutcomeDeferred, decision.Outcome)
		_, err := b.Resolve(decision.PromptID, ports.ResponseDeny)
		require.NoError(t, err)

		// Within the cool-down: denied without prompting.
		decision = b.Request(extID, readDataCap())
		assert.Equal(t, broker.OutcomeDenied, decision.Outcome)
		assert.Equal(t, 1, sink.count())

		// After the cool-down: prompted again.
		now = now.Add(broker.DefaultDenialCooldown + time.Minute)
		decision = b.Request(extID, readDataCap())
		assert.Equal(t, broker.OutcomeDeferred, decision.Outcome)
		assert.Equal(t, 2, sink.count())
	})

	t.Run("should persist always_allow across requests", func(t *testing.T) {
		store := newMemStore()
		sink := &countSink{}
		b := broker.New(
			broker.WithDecisionStore(store),
			broker.WithPromptSink(sink),
			broker.WithPolicyEngine(noSymlinks()),
		)
		b.Bind(extID, boundManifest())

		decision := b.Request(extID, readDataCap())
		require.Equal(t, broker.OutcomeDeferred, decision.Outcome)
		_, err := b.Resolve(decision.PromptID, ports.ResponseAlwaysAllow)
		require.NoError(t, err)

		decision = b.Request(extID, readDataCap())
		assert.Equal(t, broker.OutcomeGranted, decision.Outcome)
		assert.Equal(t, 1, sink.count())
	})

	t.Run("should reject unknown prompt id", func(t *testing.T) {
		b := broker.New()
		_, err := b.Resolve(uuid.New(), ports.ResponseDeny)
		assert.Error(t, err)
	})
}

func TestBrokerRules(t *testing.T) {
	t.Run("force-deny rule wins over user approval", func(t *testing.T) {
		sink := &countSink{}
		b := broker.New(
			broker.WithRules(broker.Rule{
				Name:     "no shell anywhere",
				Effect:   broker.EffectDeny,
				Category: "shell",
			}),
			broker.WithPromptSink(sink),
			broker.WithPolicyEngine(noSymlinks()),
		)
		// No manifest bound: any capability may be requested.
		decision := b.Request(extID, entities.Capability{
			Category: entities.CategoryShell,
			Scope:    "exec:git",
		})
		assert.Equal(t, broker.OutcomeDenied, decision.Outcome)
		assert.Zero(t, sink.count(), "force-denied request must not prompt")
	})

	t.Run("force-allow rule grants without prompting", func(t *testing.T) {
		sink := &countSink{}
		b := broker.New(
			broker.WithRules(broker.Rule{
				Name:      "trusted publisher",
				Effect:    broker.EffectAllow,
				Publisher: "example-corp",
			}),
			broker.WithPromptSink(sink),
			broker.WithPolicyEngine(noSymlinks()),
		)
		b.Bind(extID, boundManifest())

		decision := b.Request(extID, readDataCap())
		assert.Equal(t, broker.OutcomeGranted, decision.Outcome)
		assert.Zero(t, sink.count())
	})

	t.Run("first matching rule wins", func(t *testing.T) {
		b := broker.New(
			broker.WithRules(
				broker.Rule{Name: "deny ext", Effect: broker.EffectDeny, ExtensionID: extID},
				broker.Rule{Name: "allow all fs", Effect: broker.EffectAllow, Category: "filesystem"},
			),
			broker.WithPolicyEngine(noSymlinks()),
		)
		b.Bind(extID, boundManifest())

		decision := b.Request(extID, readDataCap())
		assert.Equal(t, broker.OutcomeDenied, decision.Outcome)
	})
}

func TestBrokerAuthorize(t *testing.T) {
	grant := func(t *testing.T, b *broker.Broker, cap entities.Capability) *entities.CapabilityToken {
		t.Helper()
		sinkless := b.Request(extID, cap)
		require.Equal(t, broker.OutcomeGranted, sinkless.Outcome)
		return sinkless.Token
	}

	newGranting := func() *broker.Broker {
		return broker.New(
			broker.WithRules(broker.Rule{Name: "allow all", Effect: broker.EffectAllow}),
			broker.WithPolicyEngine(noSymlinks()),
		)
	}

	t.Run("should authorize operation inside granted scope", func(t *testing.T) {
		b := newGranting()
		grant(t, b, readDataCap())

		token, err := b.Authorize(extID, entities.FilesystemRead("/data/reports/q3.csv"))
		require.NoError(t, err)
		assert.Equal(t, extID, token.Grantee)
	})

	t.Run("should deny operation outside granted scope", func(t *testing.T) {
		b := newGranting()
		grant(t, b, readDataCap())

		_, err := b.Authorize(extID, entities.FilesystemRead("/etc/passwd"))
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
	})

	t.Run("should deny relative path operations", func(t *testing.T) {
		b := newGranting()
		grant(t, b, readDataCap())

		_, err := b.Authorize(extID, entities.FilesystemRead("data/../etc/passwd"))
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
	})

	t.Run("should fail immediately after revoke", func(t *testing.T) {
		b := newGranting()
		token := grant(t, b, readDataCap())

		op := entities.FilesystemRead("/data/a.txt")
		_, err := b.Authorize(extID, op)
		require.NoError(t, err)

		require.NoError(t, b.Revoke(token.ID))

		_, err = b.Authorize(extID, op)
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
	})

	t.Run("should fail for all tokens after grantee invalidation", func(t *testing.T) {
		b := newGranting()
		grant(t, b, readDataCap())
		grant(t, b, entities.Capability{Category: entities.CategoryClipboard, Scope: "read"})

		b.InvalidateGrantee(extID)

		_, err := b.Authorize(extID, entities.FilesystemRead("/data/a.txt"))
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
		_, err = b.Authorize(extID, entities.ClipboardRead())
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
		assert.Empty(t, b.Tokens(extID))
	})

	t.Run("should not leak grants across extensions", func(t *testing.T) {
		b := newGranting()
		grant(t, b, readDataCap())

		_, err := b.Authorize("com.other.extension", entities.FilesystemRead("/data/a.txt"))
		assert.ErrorIs(t, err, entities.ErrPermissionDenied)
	})

	t.Run("should carry the declared reason in denials", func(t *testing.T) {
		b := broker.New(broker.WithPolicyEngine(noSymlinks()))
		b.Bind(extID, boundManifest())

		_, err := b.Authorize(extID, entities.FilesystemRead("/data/a.txt"))
		require.Error(t, err)
		var denied *entities.DeniedError
		require.ErrorAs(t, err, &denied)
		assert.Equal(t, "reads workspace files", denied.Reason)
	})
}

// countSink counts prompts without storing them.
type countSink struct {
	mu sync.Mutex
	n  int
}

func (s *countSink) Prompt(ports.PromptEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
}

func (s *countSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// failSink fails the test if prompted.
type failSink struct {
	t *testing.T
}

func (s *failSink) Prompt(ports.PromptEvent) {
	s.t.Error("prompted despite persisted decision")
}
