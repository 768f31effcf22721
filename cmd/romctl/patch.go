package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/romkit/rom"
	"github.com/joshuapare/romkit/rom/ips"
)

var (
	patchOutput       string
	patchGlobalOffset int
	patchForce        bool
	patchFixChecksum  bool

	createTitle       string
	createAuthor      string
	createDescription string
)

func init() {
	rootCmd.AddCommand(newPatchCmd())
}

func newPatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Create, check and apply IPS patches",
	}
	cmd.AddCommand(newPatchApplyCmd(), newPatchCheckCmd(), newPatchCreateCmd())
	return cmd
}

func newPatchApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <rom> <patch>",
		Short: "Apply an IPS patch to a ROM image",
		Long: `The apply command patches a ROM image in place, or writes the result
to another file with --output. Patches that record the digest of the image
they were made against are refused for other images unless --force is given.

Example:
  romctl patch apply earthbound.smc hack.ips
  romctl patch apply earthbound.smc hack.ips -o patched.smc --global-offset 0x200`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatchApply(cmd.Context(), args)
		},
	}
	cmd.Flags().StringVarP(&patchOutput, "output", "o", "", "Write the patched image here instead of in place")
	cmd.Flags().IntVar(&patchGlobalOffset, "global-offset", 0, "Subtract this from every patch offset")
	cmd.Flags().BoolVar(&patchForce, "force", false, "Apply even if the patch was made for another image")
	cmd.Flags().BoolVar(&patchFixChecksum, "fix-checksum", false, "Recompute the internal header checksum")
	return cmd
}

func runPatchApply(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	romPath, patchPath := args[0], args[1]

	r, err := rom.Load(romPath, rom.LoadOptions{})
	if err != nil {
		return fmt.Errorf("failed to load rom: %w", err)
	}
	p, err := ips.Load(patchPath, ips.LoadOptions{GlobalOffset: patchGlobalOffset})
	if err != nil {
		return fmt.Errorf("failed to load patch: %w", err)
	}
	printVerbose("Loaded %d instructions from %s\n", p.Len(), patchPath)

	if p.IsApplied(r) {
		printInfo("Patch %s is already applied\n", patchPath)
		return nil
	}
	if !patchForce && !p.Metadata.MatchesSource(r.Bytes()) {
		return fmt.Errorf("patch %s was made for a different image (use --force to apply anyway)", patchPath)
	}
	if err := p.Apply(r); err != nil {
		return fmt.Errorf("failed to apply patch: %w", err)
	}
	if patchFixChecksum {
		if err := r.FixChecksum(); err != nil {
			return fmt.Errorf("failed to fix checksum: %w", err)
		}
	}

	out := romPath
	if patchOutput != "" {
		out = patchOutput
	}
	if err := r.Save(ctx, out); err != nil {
		return fmt.Errorf("failed to save rom: %w", err)
	}
	printInfo("Applied %s to %s\n", patchPath, out)
	return nil
}

func newPatchCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <rom> <patch>",
		Short: "Report whether a patch is already applied",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatchCheck(args)
		},
	}
	cmd.Flags().IntVar(&patchGlobalOffset, "global-offset", 0, "Subtract this from every patch offset")
	return cmd
}

type patchStatus struct {
	Patch        string `json:"patch"`
	Instructions int    `json:"instructions"`
	Fits         bool   `json:"fits"`
	Applied      bool   `json:"applied"`
	SourceMatch  bool   `json:"source_match"`
	Title        string `json:"title,omitempty"`
}

func runPatchCheck(args []string) error {
	romPath, patchPath := args[0], args[1]

	r, err := rom.Load(romPath, rom.LoadOptions{})
	if err != nil {
		return fmt.Errorf("failed to load rom: %w", err)
	}
	p, err := ips.Load(patchPath, ips.LoadOptions{GlobalOffset: patchGlobalOffset})
	if err != nil {
		return fmt.Errorf("failed to load patch: %w", err)
	}

	status := patchStatus{
		Patch:        patchPath,
		Instructions: p.Len(),
		Fits:         p.Fits(r),
		Applied:      p.IsApplied(r),
		SourceMatch:  p.Metadata.MatchesSource(r.Bytes()),
	}
	if p.Metadata != nil {
		status.Title = p.Metadata.Title
	}

	if jsonOut {
		return printJSON(status)
	}
	if status.Title != "" {
		printInfo("Patch: %s (%s)\n", status.Patch, status.Title)
	} else {
		printInfo("Patch: %s\n", status.Patch)
	}
	printInfo("  Instructions: %d\n", status.Instructions)
	printInfo("  Fits: %t\n", status.Fits)
	printInfo("  Applied: %t\n", status.Applied)
	printInfo("  Source match: %t\n", status.SourceMatch)
	return nil
}

func newPatchCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <clean> <modified> <patch>",
		Short: "Create an IPS patch from two images",
		Long: `The create command compares a clean image with a modified one and
writes the differences as an IPS patch. Copier headers are stripped from
both images first, so the patch applies to headerless images. Title, author and description are
stored as metadata after the end marker together with a digest of the clean
image.

Example:
  romctl patch create clean.smc hacked.smc hack.ips --title "My Hack"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatchCreate(args)
		},
	}
	cmd.Flags().StringVar(&createTitle, "title", "", "Patch title")
	cmd.Flags().StringVar(&createAuthor, "author", "", "Patch author")
	cmd.Flags().StringVar(&createDescription, "description", "", "Patch description")
	return cmd
}

func runPatchCreate(args []string) error {
	cleanPath, modifiedPath, patchPath := args[0], args[1], args[2]

	clean, err := rom.Load(cleanPath, rom.LoadOptions{})
	if err != nil {
		return fmt.Errorf("failed to read clean image: %w", err)
	}
	modified, err := rom.Load(modifiedPath, rom.LoadOptions{})
	if err != nil {
		return fmt.Errorf("failed to read modified image: %w", err)
	}

	meta := &ips.Metadata{Title: createTitle, Author: createAuthor, Description: createDescription}
	p, err := ips.Create(clean.Bytes(), modified.Bytes(), patchPath, ips.CreateOptions{Metadata: meta})
	if err != nil {
		return fmt.Errorf("failed to create patch: %w", err)
	}
	printInfo("Wrote %d records to %s\n", p.Len(), patchPath)
	return nil
}
