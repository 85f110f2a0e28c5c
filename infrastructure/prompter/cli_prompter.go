// Package prompter provides a terminal permission prompt for hosts
// without a desktop shell.
package prompter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/oxidekit/oxidekit-core/broker"
	"github.com/oxidekit/oxidekit-core/domain/ports"
)

// Resolver receives the user's answer to a deferred capability
// request. *broker.Broker satisfies it.
type Resolver interface {
	Resolve(promptID uuid.UUID, response ports.PromptResponse) (broker.Decision, error)
}

// CliPrompter renders prompt events on a terminal and feeds the answer
// back through the resolver.
type CliPrompter struct {
	in       io.Reader
	out      io.Writer
	resolver Resolver
}

var _ ports.PromptSink = (*CliPrompter)(nil)

// NewCliPrompter creates a prompter reading answers from in.
func NewCliPrompter(in io.Reader, out io.Writer, resolver Resolver) *CliPrompter {
	return &CliPrompter{in: in, out: out, resolver: resolver}
}

// IsInteractive checks if the input is a terminal.
func (p *CliPrompter) IsInteractive() bool {
	if f, ok := p.in.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// Prompt renders the event, reads one answer, and resolves the request.
// Anything other than an explicit allow resolves as deny.
func (p *CliPrompter) Prompt(event ports.PromptEvent) {
	_, _ = fmt.Fprintf(p.out, "Extension %q requests: %s\n", event.ExtensionID, event.Description)
	_, _ = fmt.Fprintf(p.out, "Risk: %s\n", event.Risk)
	_, _ = fmt.Fprintf(p.out, "Allow? [y/n/always]: ")

	response := ports.ResponseDeny
	scanner := bufio.NewScanner(p.in)
	if scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			response = ports.ResponseAllowOnce
		case "a", "always":
			response = ports.ResponseAlwaysAllow
		}
	}

	if _, err := p.resolver.Resolve(event.PromptID, response); err != nil {
		_, _ = fmt.Fprintf(p.out, "failed to record decision: %v\n", err)
	}
}
