// Package stable keeps values and callbacks referentially stable across
// re-renders while reads still observe the latest data.
//
// A View is updated with a fresh Record every generation. Keys selected by
// the Config's Props keep returning the previously returned value as long as
// the configured Rule judges it equal to the live one. Function values are
// read through a Handle whose identity never changes and which always calls
// the most recent implementation.
//
// Factory maintains one View per key for list-like callers, and pkg/host
// adapts views to a mount/render/unmount component lifecycle.
package stable
