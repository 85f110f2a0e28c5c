package hostfuncs

import (
	"context"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// NotifyPostRequest posts a system notification.
type NotifyPostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NotifyPostResponse acknowledges the post.
type NotifyPostResponse struct {
	Posted bool `json:"posted"`
}

// NotifyPost is the notify_post host function.
func (e *Env) NotifyPost(ctx context.Context, req NotifyPostRequest) (NotifyPostResponse, error) {
	if err := e.authorize(ctx, entities.NotificationPost()); err != nil {
		return NotifyPostResponse{}, err
	}
	if err := e.services.Notifier.Post(req.Title, req.Body); err != nil {
		return NotifyPostResponse{}, err
	}
	return NotifyPostResponse{Posted: true}, nil
}
