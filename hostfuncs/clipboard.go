package hostfuncs

import (
	"context"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// ClipboardReadRequest reads the system clipboard. It has no fields;
// clipboard access is all-or-nothing.
type ClipboardReadRequest struct{}

// ClipboardReadResponse carries the clipboard text.
type ClipboardReadResponse struct {
	Content string `json:"content"`
}

// ClipboardWriteRequest replaces the clipboard text.
type ClipboardWriteRequest struct {
	Content string `json:"content"`
}

// ClipboardWriteResponse acknowledges the write.
type ClipboardWriteResponse struct {
	Written bool `json:"written"`
}

// ClipboardRead is the clipboard_read host function.
func (e *Env) ClipboardRead(ctx context.Context, _ ClipboardReadRequest) (ClipboardReadResponse, error) {
	if err := e.authorize(ctx, entities.ClipboardRead()); err != nil {
		return ClipboardReadResponse{}, err
	}
	content, err := e.services.Clipboard.Read()
	if err != nil {
		return ClipboardReadResponse{}, err
	}
	return ClipboardReadResponse{Content: content}, nil
}

// ClipboardWrite is the clipboard_write host function.
func (e *Env) ClipboardWrite(ctx context.Context, req ClipboardWriteRequest) (ClipboardWriteResponse, error) {
	if err := e.authorize(ctx, entities.ClipboardWrite()); err != nil {
		return ClipboardWriteResponse{}, err
	}
	if err := e.services.Clipboard.Write(req.Content); err != nil {
		return ClipboardWriteResponse{}, err
	}
	return ClipboardWriteResponse{Written: true}, nil
}
