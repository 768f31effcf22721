package resource

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/romkit/pkg/romerr"
)

func TestDirRoundTrip(t *testing.T) {
	d := Dir(t.TempDir())

	w, err := d.Create("enemy/groups", "yml")
	require.NoError(t, err)
	_, err = io.WriteString(w, "0: {}\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, filepath.Join(string(d), "enemy", "groups.yml"), d.Path("enemy/groups", ".yml"))

	r, err := d.Open("enemy/groups", "yml")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "0: {}\n", string(data))
}

func TestDirOpenMissing(t *testing.T) {
	_, err := Dir(t.TempDir()).Open("nope", "yml")
	assert.True(t, romerr.Is(err, romerr.FileAccess))
}

func TestDirPathWithoutExtension(t *testing.T) {
	assert.Equal(t, filepath.Join("root", "a", "b"), Dir("root").Path("a/b", ""))
}
