package policy

import (
	"log/slog"

	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// SlogDenialHandler logs denials through the default structured logger.
type SlogDenialHandler struct{}

var _ ports.DenialHandler = (*SlogDenialHandler)(nil)

func (h *SlogDenialHandler) OnDenial(extensionID string, op entities.Operation, reason string) {
	slog.Warn("capability denied",
		"extension", extensionID,
		"operation", op.String(),
		"reason", reason,
	)
}

// NopDenialHandler discards denials. Useful in tests.
type NopDenialHandler struct{}

var _ ports.DenialHandler = (*NopDenialHandler)(nil)

func (h *NopDenialHandler) OnDenial(string, entities.Operation, string) {}
