package hostfuncs

import (
	"context"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// ShellExecRequest executes a command with arguments. The capability
// check runs against the command name; arguments are not part of the
// scope.
type ShellExecRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// ShellExecResponse carries the captured output and exit code.
type ShellExecResponse struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// ShellExec is the shell_exec host function.
func (e *Env) ShellExec(ctx context.Context, req ShellExecRequest) (ShellExecResponse, error) {
	if err := e.authorize(ctx, entities.ShellExec(req.Command)); err != nil {
		return ShellExecResponse{}, err
	}
	result, err := e.services.Runner.Run(ctx, req.Command, req.Args)
	if err != nil {
		return ShellExecResponse{}, err
	}
	return ShellExecResponse{
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		ExitCode: result.ExitCode,
	}, nil
}
