package main

import (
	"sort"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// atomTexts renders every ground atom set in m as its canonical text
// form, sorted for stable output across runs.
func atomTexts(reg *registry.Registry, m *interp.Interpretation) []string {
	var out []string
	m.Iterate(func(addr uint32) {
		id := ids.New(ids.KindAtom, ids.SubOrdinaryGround, 0, addr)
		atom, ok := reg.GroundAtom(id)
		if !ok {
			return
		}
		out = append(out, atom.Text)
	})
	sort.Strings(out)
	return out
}
