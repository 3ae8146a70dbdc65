package maincmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcoblenz/Bronze/gc"
	"github.com/mcoblenz/Bronze/internal/workload"
	"github.com/mna/mainer"
)

func (c *Cmd) Sim(ctx context.Context, stdio mainer.Stdio, args []string) error {
	base, err := gc.ConfigFromEnv(strings.ToUpper(binName) + "_")
	if err != nil {
		return printError(stdio, err)
	}

	var firstErr error
	for i, path := range args {
		if i > 0 {
			fmt.Fprintln(stdio.Stdout)
		}
		if err := c.sim(ctx, stdio, base, path); err != nil {
			printError(stdio, fmt.Errorf("%s: %w", path, err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// sim runs the workload at path. The heap configuration is taken from the
// environment, overridden by the workload file, overridden by the flags.
func (c *Cmd) sim(ctx context.Context, stdio mainer.Stdio, base gc.Config, path string) error {
	w, err := workload.LoadFile(path)
	if err != nil {
		return err
	}

	cfg := base
	if wcfg := w.Config(); wcfg.InitialThreshold > 0 {
		cfg.InitialThreshold = wcfg.InitialThreshold
	}
	if wcfg := w.Config(); wcfg.TargetRatio > 0 {
		cfg.TargetRatio = wcfg.TargetRatio
	}
	if c.Threshold > 0 {
		cfg.InitialThreshold = c.Threshold
	}

	h := &gc.Heap{Config: cfg}
	if c.Debug {
		h.Debug = stdio.Stderr
	}
	defer h.Close()

	fmt.Fprintf(stdio.Stdout, "# %s: %d steps\n", path, len(w.Steps))
	res, err := workload.Run(ctx, h, w)
	for _, r := range res {
		fmt.Fprintln(stdio.Stdout, r)
	}
	return err
}
