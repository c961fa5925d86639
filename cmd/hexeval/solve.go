package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func solveCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "solve <file.json>",
		Short: "Run the eval-graph pipeline to exhaustion or -n models",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, pctx, err := readProgramFile(args[0])
			if err != nil {
				return err
			}
			p := buildPipeline(pctx, prog)
			builder := newBuilder(pctx, p)

			ctx := context.Background()
			count := 0
			for limit <= 0 || count < limit {
				m, ok, err := builder.NextAnswer(ctx)
				if err != nil {
					return fmt.Errorf("hexeval: solve: %w", err)
				}
				if !ok {
					break
				}
				count++
				fmt.Printf("answer %d: {%s}\n", count, strings.Join(atomTexts(pctx.Registry, m), ", "))
			}
			if count == 0 {
				fmt.Println("no answer sets")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after n answers (0 = exhaustive)")
	return cmd
}
