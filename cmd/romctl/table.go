package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshuapare/romkit/pkg/resource"
	"github.com/joshuapare/romkit/rom"
	"github.com/joshuapare/romkit/rom/table"
)

var (
	tableDir    string
	tableOutput string
	tableLabels map[string]string
)

func init() {
	rootCmd.AddCommand(newTableCmd())
}

func newTableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Export and import data tables described by a schema file",
	}
	cmd.PersistentFlags().StringVar(&tableDir, "dir", ".", "Project directory holding table resources")
	cmd.AddCommand(newTableExportCmd(), newTableImportCmd(), newTableListCmd())
	return cmd
}

func newTableExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <rom> <schema> <table>",
		Short: "Write a table from a ROM image to a YAML resource",
		Long: `The export command decodes the named table at the offset given by the
schema file and writes it to <dir>/<table>.yml.

Example:
  romctl table export earthbound.smc tables.yml Items --dir project`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableExport(args)
		},
	}
}

func newTableImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <rom> <schema> <table>",
		Short: "Write a YAML resource back into a ROM image",
		Long: `The import command reads <dir>/<table>.yml, validates every row and
writes the encoded table into the image at the schema offset. Pointer
columns may name labels given with --label.

Example:
  romctl table import earthbound.smc tables.yml Items --dir project -o out.smc
  romctl table import earthbound.smc tables.yml Events --label intro=0xC10000`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableImport(cmd.Context(), args)
		},
	}
	cmd.Flags().StringVarP(&tableOutput, "output", "o", "", "Write the image here instead of in place")
	cmd.Flags().StringToStringVar(&tableLabels, "label", nil, "Pointer label as name=address")
	return cmd
}

func newTableListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <schema>",
		Short: "List the tables of a schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTableList(args)
		},
	}
}

func loadSchema(path, name string) (*table.Schema, error) {
	schemas, err := loadSchemas(path)
	if err != nil {
		return nil, err
	}
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("schema %s has no table %q", path, name)
	}
	return s, nil
}

func loadSchemas(path string) (map[string]*table.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema: %w", err)
	}
	defer f.Close()
	schemas, err := table.LoadSchemas(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return schemas, nil
}

func runTableExport(args []string) error {
	romPath, schemaPath, name := args[0], args[1], args[2]

	s, err := loadSchema(schemaPath, name)
	if err != nil {
		return err
	}
	r, err := rom.Load(romPath, rom.LoadOptions{})
	if err != nil {
		return fmt.Errorf("failed to load rom: %w", err)
	}
	tbl, err := s.NewTable()
	if err != nil {
		return err
	}
	if err := tbl.FromBlock(r, s.Offset); err != nil {
		return fmt.Errorf("failed to read table %s: %w", name, err)
	}

	dir := resource.Dir(tableDir)
	if err := tbl.WriteResource(dir, name); err != nil {
		return fmt.Errorf("failed to write table %s: %w", name, err)
	}
	printInfo("Exported %d rows of %s to %s\n", tbl.RowCount(), name, dir.Path(name, table.ResourceExt))
	return nil
}

func runTableImport(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	romPath, schemaPath, name := args[0], args[1], args[2]

	labels, err := parseLabels(tableLabels)
	if err != nil {
		return err
	}
	s, err := loadSchema(schemaPath, name)
	if err != nil {
		return err
	}
	r, err := rom.Load(romPath, rom.LoadOptions{})
	if err != nil {
		return fmt.Errorf("failed to load rom: %w", err)
	}
	tbl, err := s.NewTable()
	if err != nil {
		return err
	}
	if err := tbl.ReadResource(resource.Dir(tableDir), name, labels); err != nil {
		return fmt.Errorf("failed to read table %s: %w", name, err)
	}
	if _, err := tbl.ToBlock(r, s.Offset); err != nil {
		return fmt.Errorf("failed to write table %s: %w", name, err)
	}

	out := romPath
	if tableOutput != "" {
		out = tableOutput
	}
	if err := r.Save(ctx, out); err != nil {
		return fmt.Errorf("failed to save rom: %w", err)
	}
	printInfo("Imported %d rows of %s into %s\n", tbl.RowCount(), name, out)
	return nil
}

func runTableList(args []string) error {
	schemas, err := loadSchemas(args[0])
	if err != nil {
		return err
	}

	type entry struct {
		Name    string `json:"name"`
		Offset  int    `json:"offset"`
		Columns int    `json:"columns"`
	}
	var entries []entry
	for _, name := range table.SchemaNames(schemas) {
		s := schemas[name]
		entries = append(entries, entry{Name: name, Offset: s.Offset, Columns: len(s.Columns)})
	}

	if jsonOut {
		return printJSON(entries)
	}
	for _, e := range entries {
		printInfo("%-24s offset %#08x  %d columns\n", e.Name, e.Offset, e.Columns)
	}
	return nil
}

func parseLabels(raw map[string]string) (*table.Labels, error) {
	labels := table.NewLabels()
	for name, addr := range raw {
		v, err := strconv.ParseUint(addr, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q for label %s", addr, name)
		}
		labels.Set(name, v)
	}
	return labels, nil
}
