package table

// Labels maps symbolic names to addresses for pointer columns.
// A nil *Labels resolves nothing.
type Labels struct {
	addrs map[string]uint64
}

// NewLabels returns an empty label table.
func NewLabels() *Labels {
	return &Labels{addrs: make(map[string]uint64)}
}

// Set binds name to addr, replacing any previous binding.
func (l *Labels) Set(name string, addr uint64) {
	l.addrs[name] = addr
}

// Lookup returns the address bound to name.
func (l *Labels) Lookup(name string) (uint64, bool) {
	if l == nil {
		return 0, false
	}
	addr, ok := l.addrs[name]
	return addr, ok
}

// Len returns the number of labels.
func (l *Labels) Len() int {
	if l == nil {
		return 0
	}
	return len(l.addrs)
}
