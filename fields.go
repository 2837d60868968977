package stable

import "github.com/zoobzio/capitan"

// Field keys for view events.
var (
	// KeyView is the view identifier.
	KeyView = capitan.NewStringKey("view")

	// KeyName is the record key involved in the event.
	KeyName = capitan.NewStringKey("key")

	// KeyGeneration is the generation counter after the update.
	KeyGeneration = capitan.NewIntKey("generation")

	// KeyCount is the number of keys in the backing record.
	KeyCount = capitan.NewIntKey("keys")

	// KeyResult is the type of an awaitable callback result.
	KeyResult = capitan.NewStringKey("result")

	// KeyFactoryKey is the formatted factory key.
	KeyFactoryKey = capitan.NewStringKey("factory_key")

	// KeyRegistrySize is the factory registry size after the change.
	KeyRegistrySize = capitan.NewIntKey("registry_size")
)
