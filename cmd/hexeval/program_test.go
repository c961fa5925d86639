package main

import (
	"testing"

	"github.com/gitrdm/hexeval/pkg/hex/registry"
)

const reachabilityProgram = `{
  "facts": [["edge","s","t"], ["edge","t","u"]],
  "rules": [
    {"head": [["reach","X"]], "body": [{"atom": ["edge","X","Y"]}, {"atom": ["reach","Y"]}]},
    {"head": [["reach","s"]], "body": []}
  ]
}`

func TestLoadProgramInternsFactsAndRules(t *testing.T) {
	reg := registry.New()
	prog, err := loadProgram(reg, []byte(reachabilityProgram))
	if err != nil {
		t.Fatal(err)
	}
	if prog.EDB.Count() != 2 {
		t.Fatalf("expected 2 EDB facts, got %d", prog.EDB.Count())
	}
	// 2 fact-rules + 2 declared rules
	if len(prog.Rules) != 4 {
		t.Fatalf("expected 4 total rules (facts + declared), got %d", len(prog.Rules))
	}
}

func TestInternTermClassifiesVariablesConstantsIntegers(t *testing.T) {
	reg := registry.New()
	v := internTerm(reg, "X")
	c := internTerm(reg, "a")
	n := internTerm(reg, "42")

	if term, _ := reg.Term(v); term.Text != "X" {
		t.Fatalf("expected variable term X, got %v", term)
	}
	if term, _ := reg.Term(c); term.Text != "a" {
		t.Fatalf("expected constant term a, got %v", term)
	}
	if term, _ := reg.Term(n); term.IntValue != 42 {
		t.Fatalf("expected integer term 42, got %v", term)
	}
}
