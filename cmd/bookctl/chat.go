package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive dialogue session",
	Long:  `Reads questions from stdin, one per line, and streams each answer, keeping dialogue memory across turns until you type "exit".`,
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	a, err := buildFullApp()
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	cmd.Println("bookctl chat — type 'exit' to quit")
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		fragments, _, err := a.answerer.Answer(ctx, sessionID, line)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		for frag := range fragments {
			if frag.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", frag.Err)
				break
			}
			cmd.Print(frag.Text)
			if frag.Done {
				cmd.Println()
			}
		}
	}
}
