package hostfuncs

import (
	"sync"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// UsageLog records every successfully authorized host call per
// extension. Trace-based attestation replays it to learn the concrete
// capabilities an extension exercised during a representative run.
type UsageLog struct {
	mu  sync.Mutex
	ops map[string][]entities.Operation
}

// NewUsageLog creates an empty usage log.
func NewUsageLog() *UsageLog {
	return &UsageLog{ops: make(map[string][]entities.Operation)}
}

// Record appends an authorized operation for the extension.
func (l *UsageLog) Record(extensionID string, op entities.Operation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops[extensionID] = append(l.ops[extensionID], op)
}

// Operations returns a copy of the recorded operations for the
// extension, in call order.
func (l *UsageLog) Operations(extensionID string) []entities.Operation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]entities.Operation, len(l.ops[extensionID]))
	copy(out, l.ops[extensionID])
	return out
}

// ObservedCapabilities converts the recorded operations into the
// capability form used by attestation diffs.
func (l *UsageLog) ObservedCapabilities(extensionID string) []entities.Capability {
	ops := l.Operations(extensionID)
	out := make([]entities.Capability, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.ObservedCapability())
	}
	return out
}
