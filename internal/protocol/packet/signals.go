package packet

import (
	"sort"
	"strconv"
)

var defaultSignalNames = map[uint16]string{
	0: "CNC reset",
	1: "handwheel",
	2: "operating mode",
	3: "CNC ready",
}

// SignalTable resolves DATA signal ids to labels. It is immutable once built.
type SignalTable struct {
	names map[uint16]string
}

// Signal is one id/label pair.
type Signal struct {
	ID   uint16
	Name string
}

func DefaultSignals() SignalTable {
	return NewSignalTable(nil)
}

// NewSignalTable returns the built-in table extended with extra. Entries in
// extra win over built-in labels with the same id.
func NewSignalTable(extra map[uint16]string) SignalTable {
	names := make(map[uint16]string, len(defaultSignalNames)+len(extra))
	for id, name := range defaultSignalNames {
		names[id] = name
	}
	for id, name := range extra {
		if name == "" {
			continue
		}
		names[id] = name
	}
	return SignalTable{names: names}
}

func (t SignalTable) Name(id uint16) string {
	if name, ok := t.names[id]; ok {
		return name
	}
	return "Signal " + strconv.Itoa(int(id))
}

func (t SignalTable) List() []Signal {
	out := make([]Signal, 0, len(t.names))
	for id, name := range t.names {
		out = append(out, Signal{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
