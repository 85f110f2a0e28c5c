// Package broker mediates between the host application and the sandbox
// runtime: it receives capability requests at load time, consults
// organization policy and persisted user decisions, issues or denies
// tokens, and revokes them. Tokens exist only inside this package and
// the runtime that consults it; sandboxed extension code never holds
// one.
package broker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/policy"
	"github.com/oxidekit/oxidekit-core/domain/ports"
	"github.com/oxidekit/oxidekit-core/internal/keylock"
)

// Outcome is the result kind of a capability request.
type Outcome string

const (
	OutcomeGranted  Outcome = "granted"
	OutcomeDenied   Outcome = "denied"
	OutcomeDeferred Outcome = "deferred"
)

// Decision is the broker's answer to a capability request.
type Decision struct {
	Outcome  Outcome
	Token    *entities.CapabilityToken // set when granted
	PromptID uuid.UUID                 // set when deferred
	Reason   string
}

// DefaultDenialCooldown is how long a persisted denial suppresses
// re-prompting for the same capability and extension.
const DefaultDenialCooldown = 24 * time.Hour

// brokerConfig holds configuration for the Broker.
type brokerConfig struct {
	rules          []Rule
	store          ports.DecisionStore
	sink           ports.PromptSink
	engine         *policy.Engine
	denialCooldown time.Duration
	now            func() time.Time
}

func defaultBrokerConfig() brokerConfig {
	return brokerConfig{
		denialCooldown: DefaultDenialCooldown,
		now:            time.Now,
	}
}

// Option configures the Broker.
type Option func(*brokerConfig)

// WithRules installs organization-wide policy rules. Rules are checked
// before any user decision and are authoritative: a deny rule wins even
// if the user would approve.
func WithRules(rules ...Rule) Option {
	return func(c *brokerConfig) {
		c.rules = append(c.rules, rules...)
	}
}

// WithDecisionStore sets the store for persisted user decisions.
func WithDecisionStore(s ports.DecisionStore) Option {
	return func(c *brokerConfig) {
		c.store = s
	}
}

// WithPromptSink sets the sink that receives prompt events for
// deferred requests.
func WithPromptSink(s ports.PromptSink) Option {
	return func(c *brokerConfig) {
		c.sink = s
	}
}

// WithPolicyEngine sets the scope-check engine used by Authorize.
func WithPolicyEngine(e *policy.Engine) Option {
	return func(c *brokerConfig) {
		c.engine = e
	}
}

// WithDenialCooldown sets the anti-prompt-fatigue window: a denial
// within it is returned immediately without re-prompting.
func WithDenialCooldown(d time.Duration) Option {
	return func(c *brokerConfig) {
		c.denialCooldown = d
	}
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(c *brokerConfig) {
		c.now = now
	}
}

// Broker issues, tracks and revokes capability tokens.
type Broker struct {
	config brokerConfig

	mu        sync.RWMutex
	live      map[uuid.UUID]*entities.CapabilityToken
	byGrantee map[string]map[uuid.UUID]*entities.CapabilityToken
	manifests map[string]*entities.Manifest
	pending   map[uuid.UUID]pendingPrompt

	keys keylock.KeyedMutex // serializes grant/revoke per (extension, capability)
}

type pendingPrompt struct {
	extensionID string
	capability  entities.Capability
}

var _ ports.Authorizer = (*Broker)(nil)

// New creates a Broker with the given options.
func New(opts ...Option) *Broker {
	cfg := defaultBrokerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.engine == nil {
		cfg.engine = policy.NewEngine()
	}
	return &Broker{
		config:    cfg,
		live:      make(map[uuid.UUID]*entities.CapabilityToken),
		byGrantee: make(map[string]map[uuid.UUID]*entities.CapabilityToken),
		manifests: make(map[string]*entities.Manifest),
		pending:   make(map[uuid.UUID]pendingPrompt),
	}
}

// Bind associates a validated manifest with an extension. The broker
// refuses requests for capabilities the manifest never declared, and
// uses the declared reason strings in denial messages.
func (b *Broker) Bind(extensionID string, manifest *entities.Manifest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.manifests[extensionID] = manifest
}

// Request asks for a capability on behalf of an extension. Evaluation
// order: organization rules, then the persisted user decision for this
// exact capability+extension pair, then an interactive prompt. The
// prompt event is dispatched after the per-capability lock is released,
// so a sink that resolves synchronously (a blocking terminal prompt)
// never deadlocks against Resolve.
func (b *Broker) Request(extensionID string, capability entities.Capability) Decision {
	key := capability.Canonical()
	if decision, decided := b.decide(extensionID, capability, key); decided {
		return decision
	}

	if b.config.sink == nil {
		return Decision{Outcome: OutcomeDenied, Reason: "no interactive approval available"}
	}
	promptID := uuid.New()
	b.mu.Lock()
	b.pending[promptID] = pendingPrompt{extensionID: extensionID, capability: capability}
	b.mu.Unlock()

	b.config.sink.Prompt(ports.PromptEvent{
		PromptID:    promptID,
		ExtensionID: extensionID,
		Capability:  capability,
		Risk:        capability.Category.Risk(),
		Description: capability.Describe(),
	})
	return Decision{Outcome: OutcomeDeferred, PromptID: promptID}
}

// decide runs the non-interactive evaluation under the per-capability
// lock. decided is false when only a prompt can settle the request.
func (b *Broker) decide(extensionID string, capability entities.Capability, key string) (Decision, bool) {
	unlock := b.keys.Lock(extensionID + "\x00" + key)
	defer unlock()

	if !b.declared(extensionID, key) {
		return Decision{Outcome: OutcomeDenied, Reason: "capability not declared in manifest"}, true
	}

	// 1. Organization rules are authoritative.
	if effect, rule := evaluateRules(b.config.rules, extensionID, b.publisher(extensionID), capability); effect != effectNone {
		if effect == effectDeny {
			slog.Info("capability force-denied by organization rule",
				"extension", extensionID, "capability", key, "rule", rule.Name)
			return Decision{Outcome: OutcomeDenied, Reason: "denied by organization policy"}, true
		}
		return b.grant(extensionID, capability), true
	}

	// 2. Prior persisted user decision.
	if b.config.store != nil {
		stored, err := b.config.store.Lookup(extensionID, key)
		if err != nil {
			slog.Error("decision store lookup failed", "extension", extensionID, "error", err)
		} else if stored != nil {
			switch stored.Kind {
			case ports.DecisionAllow:
				return b.grant(extensionID, capability), true
			case ports.DecisionDeny:
				if b.config.now().Sub(stored.DecidedAt) < b.config.denialCooldown {
					return Decision{Outcome: OutcomeDenied, Reason: "previously denied"}, true
				}
				// Cool-down elapsed: fall through to a fresh prompt.
			}
		}
	}
	return Decision{}, false
}

// Resolve completes a deferred request with the user's response.
// always_allow and deny responses are persisted.
func (b *Broker) Resolve(promptID uuid.UUID, response ports.PromptResponse) (Decision, error) {
	b.mu.Lock()
	p, ok := b.pending[promptID]
	if ok {
		delete(b.pending, promptID)
	}
	b.mu.Unlock()
	if !ok {
		return Decision{}, fmt.Errorf("unknown prompt id %s", promptID)
	}

	key := p.capability.Canonical()
	unlock := b.keys.Lock(p.extensionID + "\x00" + key)
	defer unlock()

	switch response {
	case ports.ResponseAllowOnce:
		return b.grant(p.extensionID, p.capability), nil
	case ports.ResponseAlwaysAllow:
		b.persist(p.extensionID, key, ports.DecisionAllow)
		return b.grant(p.extensionID, p.capability), nil
	case ports.ResponseDeny:
		b.persist(p.extensionID, key, ports.DecisionDeny)
		return Decision{Outcome: OutcomeDenied, Reason: "denied by user"}, nil
	}
	return Decision{}, fmt.Errorf("unknown prompt response %q", response)
}

// Revoke invalidates a token. When Revoke returns, any subsequent
// Authorize call requiring that token fails: liveness is consulted
// under the same lock on every authorization, so there is no stale
// grace period.
func (b *Broker) Revoke(tokenID uuid.UUID) error {
	b.mu.Lock()
	token, ok := b.live[tokenID]
	if ok {
		if !token.Revocable {
			b.mu.Unlock()
			return fmt.Errorf("token %s is not revocable", tokenID)
		}
		delete(b.live, tokenID)
		if set := b.byGrantee[token.Grantee]; set != nil {
			delete(set, tokenID)
		}
	}
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown token %s", tokenID)
	}
	slog.Info("token revoked", "token", tokenID, "extension", token.Grantee,
		"capability", token.Capability.Canonical())
	return nil
}

// InvalidateGrantee revokes every token held for an extension. The
// runtime calls this when a sandbox is unloaded so no token outlives
// its instance.
func (b *Broker) InvalidateGrantee(extensionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.byGrantee[extensionID] {
		delete(b.live, id)
	}
	delete(b.byGrantee, extensionID)
}

// Authorize implements ports.Authorizer. It re-checks token liveness
// and scope coverage on every call; results are never cached.
func (b *Broker) Authorize(extensionID string, op entities.Operation) (*entities.CapabilityToken, error) {
	normalized, ok := b.config.engine.Normalize(op)
	if !ok {
		return nil, &entities.DeniedError{Grantee: extensionID, Operation: op, Reason: "target could not be normalized"}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, token := range b.byGrantee[extensionID] {
		if token.Covers(extensionID, normalized) {
			return token, nil
		}
	}
	return nil, &entities.DeniedError{
		Grantee:   extensionID,
		Operation: op,
		Reason:    b.declaredReasonLocked(extensionID, normalized),
	}
}

// Tokens returns the live tokens for an extension. For inspection and
// tests.
func (b *Broker) Tokens(extensionID string) []*entities.CapabilityToken {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*entities.CapabilityToken, 0, len(b.byGrantee[extensionID]))
	for _, t := range b.byGrantee[extensionID] {
		out = append(out, t)
	}
	return out
}

// grant mints a token and registers it as live.
func (b *Broker) grant(extensionID string, capability entities.Capability) Decision {
	token := &entities.CapabilityToken{
		ID:         uuid.New(),
		Capability: capability,
		Grantee:    extensionID,
		IssuedAt:   b.config.now(),
		Revocable:  true,
	}
	b.mu.Lock()
	b.live[token.ID] = token
	set := b.byGrantee[extensionID]
	if set == nil {
		set = make(map[uuid.UUID]*entities.CapabilityToken)
		b.byGrantee[extensionID] = set
	}
	set[token.ID] = token
	b.mu.Unlock()
	return Decision{Outcome: OutcomeGranted, Token: token}
}

func (b *Broker) persist(extensionID, key string, kind ports.DecisionKind) {
	if b.config.store == nil {
		return
	}
	err := b.config.store.Record(ports.StoredDecision{
		ExtensionID:   extensionID,
		CapabilityKey: key,
		Kind:          kind,
		DecidedAt:     b.config.now(),
	})
	if err != nil {
		slog.Error("failed to persist decision", "extension", extensionID, "error", err)
	}
}

// declared reports whether the extension's bound manifest declares the
// capability. Extensions without a bound manifest may request anything;
// hosts that want strict declaration checking must Bind first.
func (b *Broker) declared(extensionID, key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.manifests[extensionID]
	if !ok {
		return true
	}
	for _, c := range m.AllCapabilities() {
		if c.Canonical() == key {
			return true
		}
	}
	return false
}

func (b *Broker) publisher(extensionID string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if m, ok := b.manifests[extensionID]; ok {
		return m.Publisher
	}
	return ""
}

// declaredReasonLocked finds the declared capability that would have
// covered op and returns its reason string, so denials explain what the
// extension wanted. Callers hold b.mu.
func (b *Broker) declaredReasonLocked(extensionID string, op entities.Operation) string {
	m, ok := b.manifests[extensionID]
	if !ok {
		return ""
	}
	for _, c := range m.AllCapabilities() {
		if c.Covers(op) {
			return c.Reason
		}
	}
	return ""
}
