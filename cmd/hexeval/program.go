package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode"

	"github.com/gitrdm/hexeval/pkg/hex/ids"
	"github.com/gitrdm/hexeval/pkg/hex/interp"
	"github.com/gitrdm/hexeval/pkg/hex/modelgen"
	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

// programDoc is the on-disk shape a `hexeval solve`/`hexeval graph` input
// file takes: plain JSON facts and rules over ordinary atoms. External
// atoms have no place here — registering a PluginAtom is a library-level
// concern (spec §6, out of this CLI's scope), so programDoc only ever
// exercises the ordinary-ASP path through depgraph/compgraph/evalgraph
// and the Plain/Wellfounded/GuessAndCheck model generators.
type programDoc struct {
	Facts [][]string      `json:"facts"`
	Rules []programRule   `json:"rules"`
}

type programRule struct {
	Head []([]string)    `json:"head"`
	Body []programLiteral `json:"body"`
}

type programLiteral struct {
	Atom []string `json:"atom"`
	NAF  bool     `json:"naf"`
}

// program is the loaded result: the EDB and the IDB rule set, ready for
// depgraph.BuildFromRules.
type program struct {
	EDB   *interp.Interpretation
	Rules []ids.ID
}

// loadProgram parses and interns data into reg. A bare identifier is a
// constant unless it starts with an uppercase letter or underscore (then
// it is a variable) or parses as an integer.
func loadProgram(reg *registry.Registry, data []byte) (*program, error) {
	var doc programDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("hexeval: parsing program: %w", err)
	}

	// Facts are stored both as an EDB bitset (for display) and as
	// zero-body rules, since a leaf evaluation unit's model generator
	// only ever sees the empty interpretation as its predecessor input
	// (spec §4.10: leaf units have M_in = [∅]) — a fact only reaches a
	// unit's solve by being one of that unit's own inner rules.
	edb := interp.New()
	var ruleIDs []ids.ID
	for _, fact := range doc.Facts {
		tuple, err := internTuple(reg, fact)
		if err != nil {
			return nil, err
		}
		id, err := reg.StoreOrdinaryGroundAtom(tuple)
		if err != nil {
			return nil, fmt.Errorf("hexeval: fact %v is not ground: %w", fact, err)
		}
		edb.Set(id.Address)
		ruleIDs = append(ruleIDs, reg.StoreRule([]ids.ID{id}, nil))
	}

	for _, pr := range doc.Rules {
		var head []ids.ID
		for _, h := range pr.Head {
			tuple, err := internTuple(reg, h)
			if err != nil {
				return nil, err
			}
			id, err := modelgen.StoreAtomAuto(reg, tuple)
			if err != nil {
				return nil, err
			}
			head = append(head, id)
		}
		var body []registry.Literal
		for _, lit := range pr.Body {
			tuple, err := internTuple(reg, lit.Atom)
			if err != nil {
				return nil, err
			}
			id, err := modelgen.StoreAtomAuto(reg, tuple)
			if err != nil {
				return nil, err
			}
			body = append(body, registry.Literal{Atom: id, NAF: lit.NAF})
		}
		ruleIDs = append(ruleIDs, reg.StoreRule(head, body))
	}

	return &program{EDB: edb, Rules: ruleIDs}, nil
}

func internTuple(reg *registry.Registry, terms []string) ([]ids.ID, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("hexeval: an atom needs at least a predicate name")
	}
	tuple := make([]ids.ID, len(terms))
	for i, s := range terms {
		tuple[i] = internTerm(reg, s)
	}
	return tuple, nil
}

func internTerm(reg *registry.Registry, s string) ids.ID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return reg.StoreInteger(n)
	}
	r := []rune(s)
	if len(r) > 0 && (unicode.IsUpper(r[0]) || r[0] == '_') {
		return reg.StoreVariable(s, false)
	}
	return reg.StoreConstant(s, false)
}
