package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/romkit/rom"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <rom>",
		Short: "Report header metadata of a ROM image",
		Long: `The info command loads a ROM image and displays its size, copier
header, map mode, internal title, detected type and checksum status.

Example:
  romctl info earthbound.smc
  romctl info earthbound.smc --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
	return cmd
}

type romInfo struct {
	File          string `json:"file"`
	Size          int    `json:"size"`
	CopierHeader  bool   `json:"copier_header"`
	MapMode       string `json:"map_mode"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	Checksum      string `json:"checksum"`
	ChecksumValid bool   `json:"checksum_valid"`
	Digest        string `json:"digest"`
}

func runInfo(args []string) error {
	romPath := args[0]

	printVerbose("Loading ROM: %s\n", romPath)

	r, err := rom.Load(romPath, rom.LoadOptions{})
	if err != nil {
		return fmt.Errorf("failed to load rom: %w", err)
	}

	info := romInfo{
		File:         romPath,
		Size:         r.Size(),
		CopierHeader: r.HasCopierHeader(),
		MapMode:      r.MapMode.String(),
		Title:        r.Title,
		Type:         r.Type,
		Digest:       fmt.Sprintf("%016x", r.Digest()),
	}
	sum := r.Checksum()
	info.Checksum = fmt.Sprintf("%04X", sum)
	if h, err := r.Header(); err == nil {
		info.ChecksumValid = h.ChecksumValid() && h.Checksum == sum
	}

	if jsonOut {
		return printJSON(info)
	}

	printInfo("\nROM Information:\n")
	printInfo("  File: %s\n", info.File)
	printInfo("  Size: %s\n", formatSize(info.Size))
	printInfo("  Copier header: %t\n", info.CopierHeader)
	printInfo("  Map mode: %s\n", info.MapMode)
	printInfo("  Title: %s\n", info.Title)
	printInfo("  Type: %s\n", info.Type)
	if info.ChecksumValid {
		printInfo("  Checksum: %s (valid)\n", info.Checksum)
	} else {
		printInfo("  Checksum: %s (mismatch)\n", info.Checksum)
	}
	printVerbose("  Digest: %s\n", info.Digest)

	return nil
}
