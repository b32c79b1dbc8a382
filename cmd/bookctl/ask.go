package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var askSessionID string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question against the ingested document",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askSessionID, "session", "", "reuse an existing dialogue session instead of a fresh one")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := buildFullApp()
	if err != nil {
		return err
	}

	sessionID := askSessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer, _, err := a.answerer.AnswerSync(context.Background(), sessionID, args[0])
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	cmd.Println(answer)
	return nil
}
