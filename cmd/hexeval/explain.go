package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <file.json> <unit-index>",
		Short: "Dump one evaluation unit's component and predecessor structure",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, pctx, err := readProgramFile(args[0])
			if err != nil {
				return err
			}
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("hexeval: unit index must be an integer: %w", err)
			}
			p := buildPipeline(pctx, prog)
			if idx < 0 || idx >= len(p.Eval.Units) {
				return fmt.Errorf("hexeval: unit %d out of range (graph has %d units)", idx, len(p.Eval.Units))
			}
			u := p.Eval.Units[idx]
			c := u.Component

			fmt.Printf("unit %d: factory=%s\n", u.Index, u.Factory)
			fmt.Printf("  inner rules:         %d\n", len(c.InnerRules))
			fmt.Printf("  inner constraints:   %d\n", len(c.InnerConstraints))
			fmt.Printf("  inner external atoms:%d\n", len(c.InnerExternalAtoms))
			fmt.Printf("  outer external atoms:%d\n", len(c.OuterExternalAtoms))
			fmt.Printf("  defined predicates:  %d\n", len(c.DefinedPredicates))
			fmt.Printf("  disjunctive heads:          %v\n", c.DisjunctiveHeads)
			fmt.Printf("  negative dependency:        %v\n", c.NegativeDependencyBetweenRules)
			fmt.Printf("  inner eatoms nonmonotonic:  %v\n", c.InnerEatomsNonmonotonic)
			fmt.Printf("  outer eatoms nonmonotonic:  %v\n", c.OuterEatomsNonmonotonic)
			fmt.Printf("  component is monotonic:     %v\n", c.ComponentIsMonotonic)
			fmt.Printf("  fixed domain:               %v\n", c.FixedDomain)
			fmt.Printf("  recursive aggregates:       %v\n", c.RecursiveAggregates)
			fmt.Printf("  predecessors:\n")
			for _, pe := range u.Predecessors {
				fmt.Printf("    unit %d (join order %d)\n", pe.Predecessor, pe.JoinOrder)
			}
			return nil
		},
	}
}
