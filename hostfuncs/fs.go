package hostfuncs

import (
	"context"
	"encoding/base64"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// FsReadRequest asks for the contents of a file.
type FsReadRequest struct {
	Path string `json:"path"`
}

// FsReadResponse carries the file contents, base64-encoded for the
// JSON wire format.
type FsReadResponse struct {
	Content string `json:"content"`
	Size    int    `json:"size"`
}

// FsWriteRequest writes base64-encoded content to a file.
type FsWriteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// FsWriteResponse reports the number of bytes written.
type FsWriteResponse struct {
	Written int `json:"written"`
}

// FsRead is the fs_read host function.
func (e *Env) FsRead(ctx context.Context, req FsReadRequest) (FsReadResponse, error) {
	if err := e.authorize(ctx, entities.FilesystemRead(req.Path)); err != nil {
		return FsReadResponse{}, err
	}
	data, err := e.services.FS.ReadFile(req.Path)
	if err != nil {
		return FsReadResponse{}, err
	}
	return FsReadResponse{
		Content: base64.StdEncoding.EncodeToString(data),
		Size:    len(data),
	}, nil
}

// FsWrite is the fs_write host function.
func (e *Env) FsWrite(ctx context.Context, req FsWriteRequest) (FsWriteResponse, error) {
	if err := e.authorize(ctx, entities.FilesystemWrite(req.Path)); err != nil {
		return FsWriteResponse{}, err
	}
	data, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		return FsWriteResponse{}, err
	}
	if err := e.services.FS.WriteFile(req.Path, data); err != nil {
		return FsWriteResponse{}, err
	}
	return FsWriteResponse{Written: len(data)}, nil
}
