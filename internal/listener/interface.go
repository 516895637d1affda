package listener

import "context"

type IListener interface {
	// Start runs the connect, listen and reconnect loop until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error
	Stop()
	// TriggerReconnect asks the active session to tear down and reconnect. It returns false
	// when a reconnect is already pending or the listener is not connected.
	TriggerReconnect() bool
	Status() Status
}
