package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run \"prompt\"",
		Short: "Run a single prompt and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			a, err := buildAgent(cfg, logger, nil, nil)
			if err != nil {
				return err
			}

			reply, err := a.Chat(cmd.Context(), a.CreateSession(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}
