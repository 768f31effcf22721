//go:build windows

package mmfile

import "io"

// Map reads the entire file; mapping views are not used on Windows.
func Map(path string) ([]byte, func() error, error) {
	f, _, err := statRegular(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
