package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/bookrag/internal/domain"
	"github.com/kailas-cloud/bookrag/internal/evaluate"
)

var evalNumQuestions int

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Drive the evaluation pipeline (§4.6)",
}

var evalGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic test set from the ingested document",
	RunE:  runEvalGenerate,
}

var evalRunBatchCmd = &cobra.Command{
	Use:   "run-batch",
	Short: "Score the existing test set against the current answerer",
	RunE:  runEvalRunBatch,
}

var evalRunFullCmd = &cobra.Command{
	Use:   "run-full",
	Short: "Generate a test set and score it in one pass",
	RunE:  runEvalRunFull,
}

var evalReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the most recently persisted evaluation report",
	RunE:  runEvalReport,
}

func init() {
	evalGenerateCmd.Flags().IntVar(&evalNumQuestions, "num-questions", -1, "number of questions to generate (-1 for one per eligible segment)")
	evalRunFullCmd.Flags().IntVar(&evalNumQuestions, "num-questions", -1, "number of questions to generate (-1 for one per eligible segment)")

	evalCmd.AddCommand(evalGenerateCmd, evalRunBatchCmd, evalRunFullCmd, evalReportCmd)
	rootCmd.AddCommand(evalCmd)
}

func runEvalGenerate(cmd *cobra.Command, _ []string) error {
	a, err := buildFullApp()
	if err != nil {
		return err
	}

	questions, err := a.evaluator.GenerateTestSet(context.Background(), evalNumQuestions)
	if err != nil {
		return err
	}

	cmd.Printf("generated %d questions -> %s\n", len(questions), a.evaluator.Paths().TestSetFile)
	return nil
}

func runEvalRunBatch(cmd *cobra.Command, _ []string) error {
	a, err := buildFullApp()
	if err != nil {
		return err
	}

	questions, err := evaluate.LoadTestSet(a.evaluator.Paths().TestSetFile)
	if err != nil {
		return fmt.Errorf("load test set (run `bookctl eval generate` first): %w", err)
	}

	records, averages, err := a.evaluator.RunBatchTest(context.Background(), questions)
	if err != nil {
		return err
	}

	report, err := a.evaluator.Report(records, averages)
	if err != nil {
		a.logger.Sugar().Warnf("failed to persist report: %v", err)
	}
	persistHistoryNow(a, averages, records)

	cmd.Printf("scored %d questions; avg faithfulness %.3f, avg relevance %.3f\n",
		len(records), averages.Faithfulness, averages.Relevance)
	cmd.Println(report)
	return nil
}

func runEvalRunFull(cmd *cobra.Command, _ []string) error {
	a, err := buildFullApp()
	if err != nil {
		return err
	}

	records, averages, report, err := a.evaluator.RunFullEvaluation(context.Background(), evalNumQuestions)
	if err != nil {
		return err
	}
	persistHistoryNow(a, averages, records)

	cmd.Printf("scored %d questions; avg faithfulness %.3f, avg relevance %.3f\n",
		len(records), averages.Faithfulness, averages.Relevance)
	cmd.Println(report)
	return nil
}

func runEvalReport(cmd *cobra.Command, _ []string) error {
	a, err := buildFullApp()
	if err != nil {
		return err
	}

	report, err := evaluate.ReadReportFile(a.evaluator.Paths().ReportFile)
	if err != nil {
		return fmt.Errorf("no evaluation report found: %w", err)
	}

	cmd.Println(report)
	return nil
}

// persistHistoryNow stamps the current time at this CLI boundary, since
// the evaluate package itself never reads the clock.
func persistHistoryNow(a *app, averages domain.AverageScores, records []domain.EvaluationRecord) {
	now := time.Now().UTC()
	if _, err := a.evaluator.History(now.Format("2006-01-02"), now.Format(time.RFC3339), averages, records); err != nil {
		a.logger.Sugar().Warnf("failed to persist evaluation history: %v", err)
	}
}
