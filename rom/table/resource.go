package table

import (
	"github.com/joshuapare/romkit/pkg/resource"
	"github.com/joshuapare/romkit/pkg/romerr"
)

// ResourceExt is the extension of table resources.
const ResourceExt = "yml"

// WriteResource dumps the table into the named resource.
func (t *Table) WriteResource(op resource.Opener, name string) (err error) {
	w, err := op.Create(name, ResourceExt)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = romerr.Wrap(cerr, romerr.FileAccess, "table %q: close %s", t.Name, name)
		}
	}()
	return t.Dump(w)
}

// ReadResource loads the table from the named resource.
func (t *Table) ReadResource(op resource.Opener, name string, labels *Labels) error {
	r, err := op.Open(name, ResourceExt)
	if err != nil {
		return err
	}
	defer r.Close()
	return t.Load(r, labels)
}
