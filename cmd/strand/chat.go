package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func buildChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively with the agent",
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

			session := a.CreateSession()
			out := cmd.OutOrStdout()
			interactive := term.IsTerminal(int(os.Stdin.Fd()))

			if interactive {
				fmt.Fprintf(out, "strand %s — model %s\n", version, a.Config().Model)
				fmt.Fprintln(out, "Type 'quit' or 'exit' to leave.")
			}

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
			for {
				if interactive {
					fmt.Fprint(out, "you> ")
				}
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}
				if input == "quit" || input == "exit" {
					break
				}

				reply, err := a.Chat(cmd.Context(), session, input)
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					continue
				}
				fmt.Fprintln(out, reply)
			}
			return scanner.Err()
		},
	}
}
