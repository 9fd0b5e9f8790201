package onewire

import (
	"context"
	"fmt"
	"os/exec"
)

// kernelModules are loaded, in order, to expose the bus under sysfs.
var kernelModules = []string{"w1-gpio", "w1-therm"}

// runCommand executes an external command. Replaced in tests.
var runCommand = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// LoadKernelModules runs modprobe for the GPIO bus master and the thermal
// slave driver. Every module is attempted; failures are logged and the
// first one is returned. Needs root and is a no-op when the modules are
// already loaded.
func LoadKernelModules(ctx context.Context, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}

	var firstErr error
	for _, module := range kernelModules {
		out, err := runCommand(ctx, "modprobe", module)
		if err != nil {
			logger.Warn("loading kernel module failed", "module", module, "output", string(out), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("modprobe %s: %w", module, err)
			}
			continue
		}
		logger.Debug("kernel module loaded", "module", module)
	}
	return firstErr
}
