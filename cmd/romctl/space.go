package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/romkit/rom"
	"github.com/joshuapare/romkit/rom/alloc"
)

var (
	spaceFree   []string
	spaceUsed   []string
	spaceAlloc  []int
	spaceWithin string
)

func init() {
	rootCmd.AddCommand(newSpaceCmd())
}

func newSpaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space <rom>",
		Short: "Plan free space inside a ROM image",
		Long: `The space command marks ranges of a ROM image as free or used and
reports the resulting free ranges. Ranges are inclusive and written as
begin-end; numbers accept 0x prefixes. --alloc reserves blocks first-fit in
the order given and reports where each one landed.

Example:
  romctl space earthbound.smc --free 0x300000-0x3FFFFF --used 0x300000-0x30FFFF --alloc 0x400`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpace(args)
		},
	}
	cmd.Flags().StringSliceVar(&spaceFree, "free", nil, "Mark begin-end as free")
	cmd.Flags().StringSliceVar(&spaceUsed, "used", nil, "Mark begin-end as used")
	cmd.Flags().IntSliceVar(&spaceAlloc, "alloc", nil, "Allocate a block of this many bytes")
	cmd.Flags().StringVar(&spaceWithin, "within", "", "Only report free portions of begin-end")
	return cmd
}

type spaceReport struct {
	Allocations []int         `json:"allocations,omitempty"`
	Free        []alloc.Range `json:"free"`
	FreeBytes   int           `json:"free_bytes"`
	Largest     *alloc.Range  `json:"largest,omitempty"`
}

func runSpace(args []string) error {
	r, err := rom.Load(args[0], rom.LoadOptions{})
	if err != nil {
		return fmt.Errorf("failed to load rom: %w", err)
	}

	for _, s := range spaceFree {
		rg, err := parseRange(s)
		if err != nil {
			return err
		}
		if err := r.Deallocate(rg); err != nil {
			return fmt.Errorf("failed to free %s: %w", s, err)
		}
	}
	for _, s := range spaceUsed {
		rg, err := parseRange(s)
		if err != nil {
			return err
		}
		if err := r.SetAsAllocated(rg); err != nil {
			return fmt.Errorf("failed to mark %s used: %w", s, err)
		}
	}

	var report spaceReport
	for _, n := range spaceAlloc {
		off, err := r.Allocate(n, nil)
		if err != nil {
			return fmt.Errorf("failed to allocate %d bytes: %w", n, err)
		}
		report.Allocations = append(report.Allocations, off)
	}

	if spaceWithin != "" {
		rg, err := parseRange(spaceWithin)
		if err != nil {
			return err
		}
		if report.Free, err = r.UnallocatedPortionsOfRange(rg); err != nil {
			return err
		}
	} else {
		report.Free = r.Allocator().Ranges()
	}
	for _, f := range report.Free {
		report.FreeBytes += f.Len()
	}
	if largest, err := r.LargestUnallocatedRange(); err == nil {
		report.Largest = &largest
	}

	if jsonOut {
		return printJSON(report)
	}
	for i, off := range report.Allocations {
		printInfo("Allocated %d bytes at %#x\n", spaceAlloc[i], off)
	}
	printInfo("Free ranges:\n")
	for _, f := range report.Free {
		printInfo("  %s  %d bytes\n", f, f.Len())
	}
	printInfo("Total free: %d bytes\n", report.FreeBytes)
	if report.Largest != nil {
		printVerbose("Largest free range: %s\n", *report.Largest)
	}
	return nil
}

// parseRange parses an inclusive "begin-end" range.
func parseRange(s string) (alloc.Range, error) {
	begin, end, ok := strings.Cut(s, "-")
	if !ok {
		return alloc.Range{}, fmt.Errorf("invalid range %q, want begin-end", s)
	}
	b, err := strconv.ParseInt(strings.TrimSpace(begin), 0, 0)
	if err != nil {
		return alloc.Range{}, fmt.Errorf("invalid range start in %q: %w", s, err)
	}
	e, err := strconv.ParseInt(strings.TrimSpace(end), 0, 0)
	if err != nil {
		return alloc.Range{}, fmt.Errorf("invalid range end in %q: %w", s, err)
	}
	return alloc.Range{Begin: int(b), End: int(e)}, nil
}
