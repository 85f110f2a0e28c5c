package entities

import "fmt"

// Operation is a concrete, runtime-requested action: the exact path,
// host, channel or command an extension is trying to touch. Host
// functions build an Operation per call and check it against the
// caller's live tokens; the scope-superset check is re-run on every
// call so revocation takes effect immediately.
type Operation struct {
	Category Category
	Verb     string
	Target   string

	// Scheme is set for network operations ("https" or "http") so that
	// https-only grants can be enforced.
	Scheme string
}

func (o Operation) String() string {
	if o.Target == "" {
		return fmt.Sprintf("%s:%s", o.Category, o.Verb)
	}
	return fmt.Sprintf("%s:%s:%s", o.Category, o.Verb, o.Target)
}

// ObservedCapability converts a concrete operation into the capability
// form used in attestation diffs. Trace-based extraction records the
// exact target; the https flag is preserved from the scheme.
func (o Operation) ObservedCapability() Capability {
	scope := o.Verb
	if o.Target != "" {
		scope += ":" + o.Target
	}
	return Capability{
		Category:  o.Category,
		Scope:     scope,
		HTTPSOnly: o.Category == CategoryNetwork && o.Scheme == "https",
	}
}

// FilesystemRead is a read of the given absolute path.
func FilesystemRead(path string) Operation {
	return Operation{Category: CategoryFilesystem, Verb: "read", Target: path}
}

// FilesystemWrite is a write of the given absolute path.
func FilesystemWrite(path string) Operation {
	return Operation{Category: CategoryFilesystem, Verb: "write", Target: path}
}

// NetworkConnect is an outbound connection to host using scheme.
func NetworkConnect(host, scheme string) Operation {
	return Operation{Category: CategoryNetwork, Verb: "connect", Target: host, Scheme: scheme}
}

// IpcSend is a message send on the named channel.
func IpcSend(channel string) Operation {
	return Operation{Category: CategoryIpc, Verb: "send", Target: channel}
}

// IpcReceive is a subscription to the named channel.
func IpcReceive(channel string) Operation {
	return Operation{Category: CategoryIpc, Verb: "receive", Target: channel}
}

// HardwareAccess is access to a device class such as "camera" or "usb".
func HardwareAccess(device string) Operation {
	return Operation{Category: CategoryHardware, Verb: "access", Target: device}
}

// ClipboardRead reads the system clipboard.
func ClipboardRead() Operation {
	return Operation{Category: CategoryClipboard, Verb: "read"}
}

// ClipboardWrite writes the system clipboard.
func ClipboardWrite() Operation {
	return Operation{Category: CategoryClipboard, Verb: "write"}
}

// NotificationPost posts a system notification.
func NotificationPost() Operation {
	return Operation{Category: CategoryNotification, Verb: "post"}
}

// ShellExec executes the named command.
func ShellExec(command string) Operation {
	return Operation{Category: CategoryShell, Verb: "exec", Target: command}
}
