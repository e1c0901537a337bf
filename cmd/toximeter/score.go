package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mind-engage/toximeter/internal/questionbank"
	"github.com/mind-engage/toximeter/internal/scoring"
	"github.com/mind-engage/toximeter/internal/validation"
)

type scoreFlags struct {
	questions string
	answers   string
	asJSON    bool
}

func newScoreCmd() *cobra.Command {
	f := &scoreFlags{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an answers file against a question bank, offline",
		Long: `Score reads answers as JSON, either {"answers": {"<id>": 1-5}} or a bare
{"<id>": 1-5} object, and scores them against the bank in --questions
(the built-in bank when omitted). Use --answers - to read stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd.InOrStdin(), cmd.OutOrStdout(), f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.questions, "questions", "", "question bank YAML (default: built-in bank)")
	flags.StringVar(&f.answers, "answers", "", "answers JSON file, or - for stdin")
	flags.BoolVar(&f.asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func runScore(stdin io.Reader, out io.Writer, f *scoreFlags) error {
	bank, err := questionbank.Load(f.questions)
	if err != nil {
		return exitError(exitBadInput, "load questions: %v", err)
	}
	responses, err := readAnswers(stdin, f.answers)
	if err != nil {
		return exitError(exitBadInput, "%v", err)
	}

	qs := make([]scoring.Question, len(bank))
	for i, q := range bank {
		qs[i] = q.Scoring()
	}
	res, err := scoring.Compute(responses, qs)
	if err != nil {
		var missing *scoring.MissingAnswerError
		if errors.As(err, &missing) {
			return exitError(exitMissingAnswer, "%v", err)
		}
		return err
	}

	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintln(out, renderResult(res))
	return nil
}

func readAnswers(stdin io.Reader, path string) (scoring.Responses, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	data = bytes.TrimSpace(data)
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	if _, wrapped := probe["answers"]; !wrapped {
		data = append(append([]byte(`{"answers":`), data...), '}')
	}
	if err := validation.Answers.Validate(data); err != nil {
		return nil, err
	}
	var req struct {
		Answers scoring.Responses `json:"answers"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse answers: %w", err)
	}
	return req.Answers, nil
}

var tierColors = map[scoring.Tier]lipgloss.Color{
	scoring.TierHealthy:    lipgloss.Color("10"),  // green
	scoring.TierManageable: lipgloss.Color("11"),  // yellow
	scoring.TierConcerning: lipgloss.Color("208"), // orange
	scoring.TierToxic:      lipgloss.Color("9"),   // red
}

func renderResult(res scoring.Result) string {
	tier := lipgloss.NewStyle().Bold(true).Foreground(tierColors[res.Tier]).
		Render(fmt.Sprintf("%s %d%%", res.Tier, res.Percent))
	raw := lipgloss.NewStyle().Foreground(lipgloss.Color("7")).
		Render(fmt.Sprintf("(raw %g)", res.RawScore))
	return tier + " " + raw + "\n" + res.Advice
}
