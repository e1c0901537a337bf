package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/toximeter/internal/app"
	"github.com/mind-engage/toximeter/internal/config"
	"github.com/mind-engage/toximeter/internal/logger"
	"github.com/mind-engage/toximeter/internal/questionbank"
	"github.com/mind-engage/toximeter/internal/scoring"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const fourQuestions = `questions:
  - id: q1
    text: I feel respected when expressing my opinions.
    weight: -2
  - id: q2
    text: We often insult or belittle each other.
    weight: 2
  - id: q3
    text: I am afraid of my partner's reactions.
    weight: 2
  - id: q4
    text: We communicate openly and honestly.
    weight: -2
`

func TestScore_JSON(t *testing.T) {
	bank := writeFile(t, "bank.yaml", fourQuestions)
	answers := writeFile(t, "answers.json", `{"answers":{"q1":4,"q2":2,"q3":4,"q4":4}}`)

	out, err := execute(t, "", "score", "--questions", bank, "--answers", answers, "--json")
	require.NoError(t, err)

	var res scoring.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, -4.0, res.RawScore)
	assert.Equal(t, 38, res.Percent)
	assert.Equal(t, scoring.TierManageable, res.Tier)
}

func TestScore_BareObjectFromStdin(t *testing.T) {
	bank := writeFile(t, "bank.yaml", fourQuestions)

	out, err := execute(t, `{"q1":3,"q2":3,"q3":3,"q4":3}`, "score", "--questions", bank, "--answers", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Concerning 50%")
	assert.Contains(t, out, scoring.AdviceFor(scoring.TierConcerning))
}

func TestScore_DefaultBank(t *testing.T) {
	bank, err := questionbank.Default()
	require.NoError(t, err)
	answers := map[string]int{}
	for _, q := range bank {
		if q.Weight > 0 {
			answers[q.ID] = 1
		} else {
			answers[q.ID] = 5
		}
	}
	buf, err := json.Marshal(answers)
	require.NoError(t, err)

	out, err := execute(t, string(buf), "score", "--answers", "-", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"tier": "Healthy"`)
	assert.Contains(t, out, `"percent": 0`)
}

func TestScore_ExitCodes(t *testing.T) {
	bank := writeFile(t, "bank.yaml", fourQuestions)

	_, err := execute(t, `{"q1":3,"q2":3,"q4":3}`, "score", "--questions", bank, "--answers", "-")
	var ee *exitErr
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, exitMissingAnswer, ee.code)
	assert.Contains(t, ee.msg, "q3")

	_, err = execute(t, `{}`, "score", "--questions", bank, "--answers", "-")
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, exitMissingAnswer, ee.code)
	assert.Contains(t, ee.msg, "q1")

	_, err = execute(t, `{"q1":9,"q2":3,"q3":3,"q4":3}`, "score", "--questions", bank, "--answers", "-")
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, exitBadInput, ee.code)

	_, err = execute(t, `{}`, "score", "--questions", filepath.Join(t.TempDir(), "nope.yaml"), "--answers", "-")
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, exitBadInput, ee.code)

	_, err = execute(t, "", "score")
	assert.Error(t, err, "--answers is required")
}

func TestSeedAndVerify(t *testing.T) {
	t.Chdir(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "toximeter.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file:"+dbPath)
	t.Setenv("LOG_LEVEL", "error")

	bank := writeFile(t, "bank.yaml", fourQuestions)
	out, err := execute(t, "", "seed", "--questions", bank)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 4 questions")

	ctx := context.Background()
	cfg, err := config.Load("")
	require.NoError(t, err)
	a, err := app.Open(ctx, cfg, logger.NewNoOpLogger())
	require.NoError(t, err)
	sub, err := a.Service.Submit(ctx, "u1", scoring.Responses{"q1": 2, "q2": 4, "q3": 3, "q4": 3})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	out, err = execute(t, "", "verify", sub.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "rescored: Concerning")

	_, err = execute(t, "", "verify", "missing-id")
	assert.Error(t, err)
}
