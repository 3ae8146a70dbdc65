package maincmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcoblenz/Bronze/gc/stackmap"
	"github.com/mna/mainer"
)

func (c *Cmd) Frames(ctx context.Context, stdio mainer.Stdio, args []string) error {
	var firstErr error
	for i, path := range args {
		if err := ctx.Err(); err != nil {
			return printError(stdio, err)
		}
		if i > 0 {
			fmt.Fprintln(stdio.Stdout)
		}
		if err := frames(stdio, path); err != nil {
			printError(stdio, fmt.Errorf("%s: %w", path, err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// frames assembles the stack map file, checks that it survives a round-trip
// through its binary encoding and prints the disassembly of the decoded
// table followed by the validation result of each frame.
func frames(stdio mainer.Stdio, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tbl, err := stackmap.Asm(b)
	if err != nil {
		return err
	}
	enc, err := stackmap.EncodeTable(tbl)
	if err != nil {
		return err
	}
	dec, err := stackmap.DecodeTable(enc)
	if err != nil {
		return err
	}
	out, err := stackmap.Dasm(dec)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdio.Stdout, "# %s: %d frames, %d bytes\n", filepath.Base(path), len(dec.Descriptors), len(enc))
	stdio.Stdout.Write(out)
	fmt.Fprintln(stdio.Stdout)

	var invalid int
	for _, d := range dec.Descriptors {
		if err := d.Map.Validate(); err != nil {
			invalid++
			fmt.Fprintf(stdio.Stdout, "%s: %s\n", d.Name, err)
			continue
		}
		fmt.Fprintf(stdio.Stdout, "%s: ok\n", d.Name)
	}
	if invalid > 0 {
		return fmt.Errorf("%d invalid frame(s)", invalid)
	}
	return nil
}
