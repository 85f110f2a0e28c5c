package hostfuncs

// Host function names as dispatched by the WASM runtime.
const (
	FuncFsRead         = "fs_read"
	FuncFsWrite        = "fs_write"
	FuncNetFetch       = "net_fetch"
	FuncIpcSend        = "ipc_send"
	FuncIpcReceive     = "ipc_receive"
	FuncHwAccess       = "hw_access"
	FuncClipboardRead  = "clipboard_read"
	FuncClipboardWrite = "clipboard_write"
	FuncNotifyPost     = "notify_post"
	FuncShellExec      = "shell_exec"
)

// WithCapabilityBundle registers the full set of capability-gated host
// functions backed by the Env.
func WithCapabilityBundle(env *Env) RegistryOption {
	return func(b *registryBuilder) {
		handlers := map[string]ByteHandler{
			FuncFsRead:         NewJSONHandler(env.FsRead),
			FuncFsWrite:        NewJSONHandler(env.FsWrite),
			FuncNetFetch:       NewJSONHandler(env.NetFetch),
			FuncIpcSend:        NewJSONHandler(env.IpcSend),
			FuncIpcReceive:     NewJSONHandler(env.IpcReceive),
			FuncHwAccess:       NewJSONHandler(env.HwAccess),
			FuncClipboardRead:  NewJSONHandler(env.ClipboardRead),
			FuncClipboardWrite: NewJSONHandler(env.ClipboardWrite),
			FuncNotifyPost:     NewJSONHandler(env.NotifyPost),
			FuncShellExec:      NewJSONHandler(env.ShellExec),
		}
		for name, handler := range handlers {
			if err := b.addHandler(name, handler); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}
