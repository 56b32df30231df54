package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"muniresults/internal/config"
)

func newURLCommand(ctx *commandContext) *cobra.Command {
	var state string
	var code int

	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the results document address of one municipality",
		Example: `  muniresults url --state al --code 27014 --candidacy mayor
  https://resultados.tse.jus.br/oficial/ele2024/619/dados/al/al27014-c0011-e000619-u.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			candidacy, err := ctx.cfg.CandidacyType()
			if err != nil {
				return err
			}
			if len(strings.TrimSpace(state)) != 2 {
				return &config.ConfigurationError{Key: "state", Value: state, Reason: "must be a 2-letter state code"}
			}
			if code <= 0 {
				return &config.ConfigurationError{Key: "code", Value: strconv.Itoa(code), Reason: "must be positive"}
			}
			fmt.Fprintln(cmd.OutOrStdout(), ctx.cfg.Template().URL(strings.TrimSpace(state), code, candidacy))
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Two-letter state code")
	cmd.Flags().IntVar(&code, "code", 0, "Electoral code of the municipality")
	cmd.Flags().String("candidacy", "", "Contest: mayor or councilor")
	addElectionFlags(cmd)
	return cmd
}
