package stable

import "github.com/zoobzio/capitan"

// View lifecycle signals.
var (
	// ViewUpdated is emitted after an update or merge installs a new generation.
	ViewUpdated = capitan.NewSignal(
		"stable.view.updated",
		"View generation installed",
	)

	// ViewKeysChanged is emitted when a generation changes the key set.
	ViewKeysChanged = capitan.NewSignal(
		"stable.view.keys.changed",
		"View key set changed",
	)

	// UnknownKeyRejected is emitted when a write targets an absent key.
	UnknownKeyRejected = capitan.NewSignal(
		"stable.view.write.rejected",
		"Write to unknown key rejected",
	)
)

// Callback signals.
var (
	// AsyncCallbackDetected is emitted in development mode when a wrapped
	// callback returns an awaitable result.
	AsyncCallbackDetected = capitan.NewSignal(
		"stable.handle.async",
		"Wrapped callback returned an awaitable result",
	)
)

// Factory signals.
var (
	// FactoryViewCreated is emitted when a factory registers a new view.
	FactoryViewCreated = capitan.NewSignal(
		"stable.factory.created",
		"Keyed view created",
	)

	// FactoryViewEvicted is emitted when a factory drops a view.
	FactoryViewEvicted = capitan.NewSignal(
		"stable.factory.evicted",
		"Keyed view evicted",
	)
)
