package table

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/romkit/pkg/romerr"
)

// Dump writes the human representation as YAML. Rows appear in index order
// and columns in row order; hex integer columns are written as 0x literals.
func (t *Table) Dump(w io.Writer) error {
	doc, err := t.ToHuman()
	if err != nil {
		return err
	}
	root := &yaml.Node{Kind: yaml.MappingNode}
	for r := range t.rows {
		rowNode := &yaml.Node{Kind: yaml.MappingNode}
		for i, c := range t.columns {
			valNode, err := t.textNode(c, t.rows[r][i], doc[r][c.Name])
			if err != nil {
				return romerr.WithCell(err, romerr.Table, r, c.Name)
			}
			rowNode.Content = append(rowNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: c.Name}, valNode)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(r)}, rowNode)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return romerr.Wrap(err, romerr.FileAccess, "table %q: write yaml", t.Name)
	}
	if err := enc.Close(); err != nil {
		return romerr.Wrap(err, romerr.FileAccess, "table %q: write yaml", t.Name)
	}
	return nil
}

func (t *Table) textNode(c Column, value, text any) (*yaml.Node, error) {
	if c.Kind == HexInteger {
		n, ok := toUint64(value)
		if !ok {
			return nil, c.typeError(value, "unsigned integer")
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("0x%X", n)}, nil
	}
	node := &yaml.Node{}
	if err := node.Encode(text); err != nil {
		return nil, err
	}
	if node.Kind == yaml.SequenceNode {
		node.Style = yaml.FlowStyle
	}
	return node, nil
}

// Load reads a YAML human representation and replaces the table contents.
// An empty document counts as having no rows.
func (t *Table) Load(r io.Reader, labels *Labels) error {
	doc := map[int]map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return romerr.Wrap(err, romerr.InvalidUserData, "table %q: parse yaml", t.Name)
	}
	return t.FromHuman(doc, labels)
}
