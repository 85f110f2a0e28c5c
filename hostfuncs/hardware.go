package hostfuncs

import (
	"context"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// HwAccessRequest requests access to a device class such as "camera"
// or "usb".
type HwAccessRequest struct {
	Device string `json:"device"`
}

// HwAccessResponse carries a host-assigned descriptor for the opened
// device.
type HwAccessResponse struct {
	Descriptor string `json:"descriptor"`
}

// HwAccess is the hw_access host function.
func (e *Env) HwAccess(ctx context.Context, req HwAccessRequest) (HwAccessResponse, error) {
	if err := e.authorize(ctx, entities.HardwareAccess(req.Device)); err != nil {
		return HwAccessResponse{}, err
	}
	desc, err := e.services.Devices.Open(req.Device)
	if err != nil {
		return HwAccessResponse{}, err
	}
	return HwAccessResponse{Descriptor: desc}, nil
}
