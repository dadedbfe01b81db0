package shell

// Event names carried over the bridge.
const (
	// EventIPFSID is sent by a surface to ask the backend for a reply.
	EventIPFSID = "ipfs-id"
	// EventRustEvent is the backend's reply to EventIPFSID.
	EventRustEvent = "rust-event"
	// EventIdentity carries the daemon identity to the main window.
	EventIdentity = "ipfs-identity"
	// EventDaemonStatus tells the splash window that startup failed.
	EventDaemonStatus = "daemon-status"
	// EventSettingsChanged tells the main window that settings were reloaded.
	EventSettingsChanged = "settings-changed"
)

// ReplyPayload is the body of EventRustEvent.
type ReplyPayload struct {
	Data string `json:"data"`
}

// replyData is the fixed reply to EventIPFSID.
const replyData = "something else"

// DaemonStatusPayload is the body of EventDaemonStatus.
type DaemonStatusPayload struct {
	State  string `json:"state"`
	Reason string `json:"reason"`
	// Issue names the known problem seen in the daemon's output, if any.
	Issue string `json:"issue,omitempty"`
}

// SettingsPayload is the body of EventSettingsChanged.
type SettingsPayload struct {
	OnExit  string `json:"on_exit"`
	Confirm bool   `json:"confirm"`
}
