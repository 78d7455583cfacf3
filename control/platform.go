// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Host topology and memory probes.

package control

import (
	"runtime"

	"github.com/momentics/hioload-slice/core/buffer"
	"github.com/momentics/hioload-slice/internal/concurrency"
)

// RegisterPlatformProbes adds host topology and buffer accounting probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any { return concurrency.NumCPUs() })
	dp.RegisterProbe("platform.numa_nodes", func() any { return concurrency.NUMANodes() })
	dp.RegisterProbe("platform.numa_node", func() any { return concurrency.CurrentNUMANodeID() })
	dp.RegisterProbe("platform.goroutines", func() any { return runtime.NumGoroutine() })
	dp.RegisterProbe("buffer.live", func() any { return buffer.Live() })
	dp.RegisterProbe("buffer.mapped_bytes", func() any { return buffer.MappedBytes() })
}
