package hostfuncs

import "context"

type contextKey struct{ name string }

var (
	extensionIDKey  = &contextKey{name: "extension_id"}
	functionNameKey = &contextKey{name: "function_name"}
)

// WithExtensionID tags the context with the calling extension's ID.
// The sandbox runtime sets this before dispatching a host call; the
// capability check reads it back to know whose tokens to consult.
func WithExtensionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, extensionIDKey, id)
}

// ExtensionIDFromContext retrieves the calling extension's ID.
func ExtensionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(extensionIDKey).(string)
	return id, ok
}

// WithFunctionName tags the context with the invoked host function
// name, for middleware and logging.
func WithFunctionName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, functionNameKey, name)
}

// FunctionNameFromContext retrieves the invoked host function name.
func FunctionNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(functionNameKey).(string)
	return name, ok
}
