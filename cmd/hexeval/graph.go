package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func graphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <file.json>",
		Short: "Print the dependency/component/eval graph as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, pctx, err := readProgramFile(args[0])
			if err != nil {
				return err
			}
			p := buildPipeline(pctx, prog)

			fmt.Printf("dependency graph: %d nodes\n", len(p.Dep.Nodes()))
			fmt.Printf("component graph:  %d components\n", len(p.Comp.Components))
			fmt.Printf("eval graph:       %d units\n", len(p.Eval.Units))
			finalIdx, err := p.Eval.FinalUnit()
			if err == nil {
				fmt.Printf("final unit:       %d\n", finalIdx)
			}
			for _, u := range p.Eval.Units {
				fmt.Printf("  unit %d [%s] rules=%d inner-ext=%d outer-ext=%d preds=%d", u.Index, u.Factory,
					len(u.Component.InnerRules), len(u.Component.InnerExternalAtoms), len(u.Component.OuterExternalAtoms), len(u.Component.DefinedPredicates))
				if len(u.Predecessors) > 0 {
					fmt.Printf(" <-")
					for _, pe := range u.Predecessors {
						fmt.Printf(" %d", pe.Predecessor)
					}
				}
				fmt.Println()
			}
			return nil
		},
	}
}
