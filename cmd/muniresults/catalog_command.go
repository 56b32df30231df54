package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"muniresults/internal/catalog"
	"muniresults/internal/pipeline"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the municipality count per state of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(ctx.cfg.Catalog)
			if err != nil {
				return err
			}
			exclusions := pipeline.DefaultExclusions()

			excluded := 0
			skippedByState := make(map[string]int)
			for _, m := range cat.Municipalities {
				if _, ok := exclusions.Excludes(m); ok {
					excluded++
					skippedByState[m.StateCode]++
				}
			}

			counts := cat.CountByState()
			rows := make([][]string, 0, len(counts))
			for _, c := range counts {
				rows = append(rows, []string{
					strings.ToUpper(c.StateCode),
					strconv.Itoa(c.Count),
					strconv.Itoa(skippedByState[c.StateCode]),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, reportTable{
				Title: "Catalog " + ctx.cfg.Catalog,
				Columns: []column{
					{Header: "State"},
					{Header: "Municipalities", Align: alignRight},
					{Header: "Skipped", Align: alignRight},
				},
				Rows:   rows,
				Footer: []string{"Total", strconv.Itoa(cat.Len()), strconv.Itoa(excluded)},
			}.render())
			fmt.Fprintf(out, "Skipped states: %s\n", strings.ToUpper(strings.Join(exclusions.States, ", ")))
			fmt.Fprintf(out, "Skipped municipalities: %s\n", strings.Join(exclusions.Municipalities, ", "))
			return nil
		},
	}
	cmd.Flags().String("catalog", catalog.DefaultPath, "Municipality catalog file")
	return cmd
}
