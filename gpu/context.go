// Package gpu owns headless WebGPU device acquisition: backend probing,
// instance/adapter enumeration, and device/queue setup. Everything
// downstream (render, postfx) is handed a ready Context rather than
// touching hal directly.
package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/sonica/sonica/internal/sonicaerr"
)

// Context holds the opened device and queue for the process lifetime.
type Context struct {
	Backend  string
	Instance hal.Instance
	Device   hal.Device
	Queue    hal.Queue
	AdapterName string
}

// probeOrder is tried in order; the first backend that both exists and
// exposes at least one adapter wins. Metal first favors macOS (the
// teacher's and the pack's most common dev target), then the two
// cross-platform backends.
var probeOrder = []gputypes.Backend{
	gputypes.BackendMetal,
	gputypes.BackendVulkan,
	gputypes.BackendD3D12,
}

var backendNames = map[gputypes.Backend]string{
	gputypes.BackendMetal:  "metal",
	gputypes.BackendVulkan: "vulkan",
	gputypes.BackendD3D12:  "d3d12",
}

// Open tries each backend in probeOrder and opens a device on the
// first adapter found, preferring a discrete or integrated GPU over
// software/CPU adapters.
func Open() (*Context, error) {
	var lastErr error
	for _, b := range probeOrder {
		ctx, err := openBackend(b)
		if err == nil {
			return ctx, nil
		}
		lastErr = err
	}
	return nil, sonicaerr.New(sonicaerr.KindGPUInit, fmt.Errorf("no usable GPU backend found: %w", lastErr))
}

func openBackend(b gputypes.Backend) (*Context, error) {
	backend, ok := hal.GetBackend(b)
	if !ok {
		return nil, fmt.Errorf("%s: backend not compiled in", backendNames[b])
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%s: create instance: %w", backendNames[b], err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return nil, fmt.Errorf("%s: no adapters", backendNames[b])
	}

	selected := &adapters[0]
	for i := range adapters {
		dt := adapters[i].Info.DeviceType
		if dt == gputypes.DeviceTypeDiscreteGPU || dt == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	opened, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("%s: open device: %w", backendNames[b], err)
	}

	return &Context{
		Backend:     backendNames[b],
		Instance:    instance,
		Device:      opened.Device,
		Queue:       opened.Queue,
		AdapterName: selected.Info.Name,
	}, nil
}
