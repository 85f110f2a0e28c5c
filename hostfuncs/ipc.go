package hostfuncs

import (
	"context"
	"encoding/base64"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// IpcSendRequest sends a message on a named channel.
type IpcSendRequest struct {
	Channel string `json:"channel"`
	Data    string `json:"data"`
}

// IpcSendResponse acknowledges the send.
type IpcSendResponse struct {
	Sent bool `json:"sent"`
}

// IpcReceiveRequest polls a named channel for the next message.
type IpcReceiveRequest struct {
	Channel string `json:"channel"`
}

// IpcReceiveResponse carries the next message, if any.
type IpcReceiveResponse struct {
	Data string `json:"data"`
	Ok   bool   `json:"ok"`
}

// IpcSend is the ipc_send host function.
func (e *Env) IpcSend(ctx context.Context, req IpcSendRequest) (IpcSendResponse, error) {
	if err := e.authorize(ctx, entities.IpcSend(req.Channel)); err != nil {
		return IpcSendResponse{}, err
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return IpcSendResponse{}, err
	}
	if err := e.services.Bus.Send(req.Channel, data); err != nil {
		return IpcSendResponse{}, err
	}
	return IpcSendResponse{Sent: true}, nil
}

// IpcReceive is the ipc_receive host function. It is non-blocking: Ok
// is false when the channel is empty.
func (e *Env) IpcReceive(ctx context.Context, req IpcReceiveRequest) (IpcReceiveResponse, error) {
	if err := e.authorize(ctx, entities.IpcReceive(req.Channel)); err != nil {
		return IpcReceiveResponse{}, err
	}
	data, ok, err := e.services.Bus.Receive(req.Channel)
	if err != nil {
		return IpcReceiveResponse{}, err
	}
	if !ok {
		return IpcReceiveResponse{}, nil
	}
	return IpcReceiveResponse{
		Data: base64.StdEncoding.EncodeToString(data),
		Ok:   true,
	}, nil
}
