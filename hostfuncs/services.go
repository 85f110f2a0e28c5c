package hostfuncs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"

	"github.com/oxidekit/oxidekit-core/domain/entities"
)

// Services are the host-side effect implementations behind the
// capability-gated host functions. Every service is replaceable so
// hosts can route effects through their own subsystems and tests can
// use fakes.
type Services struct {
	FS        FileSystem
	HTTP      HTTPDoer
	Clipboard Clipboard
	Notifier  Notifier
	Runner    CommandRunner
	Bus       MessageBus
	Devices   DeviceProbe
}

// DefaultServices returns stdlib-backed implementations with bounded
// I/O.
func DefaultServices() Services {
	return Services{
		FS:        &osFileSystem{maxRead: DefaultMaxReadSize},
		HTTP:      &httpDoer{client: http.DefaultClient, maxBody: DefaultMaxBodySize},
		Clipboard: &memoryClipboard{},
		Notifier:  &slogNotifier{},
		Runner:    &execRunner{},
		Bus:       NewMemoryBus(),
		Devices:   &staticDeviceProbe{},
	}
}

// I/O bounds for host calls, keeping a single extension from pulling
// unbounded data through the host.
const (
	DefaultMaxReadSize = 8 << 20 // 8 MiB per file read
	DefaultMaxBodySize = 4 << 20 // 4 MiB per HTTP response
)

// FileSystem performs gated file reads and writes.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

type osFileSystem struct {
	maxRead int64
}

func (f *osFileSystem) ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > f.maxRead {
		return nil, fmt.Errorf("%w: file %s is %d bytes, limit %d",
			entities.ErrResourceExceeded, path, info.Size(), f.maxRead)
	}
	return os.ReadFile(path)
}

func (f *osFileSystem) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// HTTPDoer performs gated outbound HTTP requests.
type HTTPDoer interface {
	Fetch(ctx context.Context, url string) (status int, body []byte, err error)
}

type httpDoer struct {
	client  *http.Client
	maxBody int64
}

func (d *httpDoer) Fetch(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBody+1))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if int64(len(body)) > d.maxBody {
		return resp.StatusCode, nil, fmt.Errorf("%w: response body exceeds %d bytes",
			entities.ErrResourceExceeded, d.maxBody)
	}
	return resp.StatusCode, body, nil
}

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	Read() (string, error)
	Write(content string) error
}

// memoryClipboard is the default host clipboard: an in-process buffer.
// Desktop hosts replace it with a platform adapter.
type memoryClipboard struct {
	mu      sync.Mutex
	content string
}

func (c *memoryClipboard) Read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, nil
}

func (c *memoryClipboard) Write(content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = content
	return nil
}

// Notifier posts system notifications.
type Notifier interface {
	Post(title, body string) error
}

type slogNotifier struct{}

func (n *slogNotifier) Post(title, body string) error {
	slog.Info("notification", "title", title, "body", body)
	return nil
}

// CommandRunner executes gated shell commands.
type CommandRunner interface {
	Run(ctx context.Context, command string, args []string) (CommandResult, error)
}

// CommandResult is the outcome of a shell execution.
type CommandResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// boundedBuffer captures at most maxCaptured bytes of process output
// and silently discards the rest.
type boundedBuffer struct {
	buf bytes.Buffer
}

const maxCaptured = 1 << 20 // 1 MiB per stream

func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := maxCaptured - b.buf.Len()
	if remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string { return b.buf.String() }

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, command string, args []string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr boundedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, err
	}
	return result, nil
}

// MessageBus carries inter-extension messages over named channels.
type MessageBus interface {
	Send(channel string, data []byte) error
	Receive(channel string) ([]byte, bool, error)
}

// MemoryBus is the default in-process message bus. Each channel is a
// bounded FIFO; sends to a full channel fail rather than block.
type MemoryBus struct {
	mu       sync.Mutex
	channels map[string][][]byte
	maxDepth int
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		channels: make(map[string][][]byte),
		maxDepth: 128,
	}
}

func (b *MemoryBus) Send(channel string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.channels[channel]) >= b.maxDepth {
		return fmt.Errorf("%w: channel %s is full", entities.ErrResourceExceeded, channel)
	}
	msg := make([]byte, len(data))
	copy(msg, data)
	b.channels[channel] = append(b.channels[channel], msg)
	return nil
}

func (b *MemoryBus) Receive(channel string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.channels[channel]
	if len(queue) == 0 {
		return nil, false, nil
	}
	msg := queue[0]
	b.channels[channel] = queue[1:]
	return msg, true, nil
}

// DeviceProbe answers hardware access requests.
type DeviceProbe interface {
	// Open prepares the named device class for use and returns a
	// descriptor string.
	Open(device string) (string, error)
}

type staticDeviceProbe struct{}

func (p *staticDeviceProbe) Open(device string) (string, error) {
	// The default host exposes no real hardware.
	return "", fmt.Errorf("device %q not available on this host", device)
}
