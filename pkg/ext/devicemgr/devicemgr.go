// Package devicemgr declares the DeviceManager capability spec.md §1
// excludes from this module's implementation scope: enumerating host
// block devices, judging which are safe to format, and surfacing that
// to a caller (a CLI's "pick a device" prompt or a GUI's device list).
// This module only ever formats a device.Device a caller already has a
// handle to (pkg/ext/device.OpenFile); discovering that handle, and
// deciding whether it's safe to touch, is this interface's job and is
// never implemented here.
package devicemgr

import "context"

// Descriptor is the minimal information spec.md's safety-gate
// interfaces need about a candidate device: enough to render a warning
// prompt, not enough to act on without a concrete platform-specific
// DeviceManager behind it.
type Descriptor struct {
	Path       string
	SizeBytes  int64
	IsRemovable bool
	IsSystemDisk bool
	Model      string
}

// DeviceManager enumerates and classifies host devices. No
// implementation lives in this module — see spec.md §1's Non-goals.
type DeviceManager interface {
	List(ctx context.Context) ([]Descriptor, error)
	IsSafeToFormat(ctx context.Context, path string) (bool, string, error)
}
