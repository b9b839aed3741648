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

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/automation-exposure/internal/config"
	"github.com/jonathan/automation-exposure/internal/decomposition"
	"github.com/jonathan/automation-exposure/internal/llm"
	"github.com/jonathan/automation-exposure/internal/llm/llmtest"
	"github.com/jonathan/automation-exposure/internal/narrative"
	"github.com/jonathan/automation-exposure/internal/roadmap"
	"github.com/jonathan/automation-exposure/internal/scoring"
	"github.com/jonathan/automation-exposure/internal/validation"
)

const validProfile = `{
	"age": "25",
	"gender": "male",
	"job_title": "psychologist",
	"job_description": "Helps clients with their mental state through conversation.",
	"daily_routine": "Reads the diary, meets clients, analyses their situation.",
	"location": "office in Kosice",
	"education": "Comenius University, psychology"
}`

func scriptedClient() *llmtest.FakeClient {
	return llmtest.New(func(_ context.Context, req llm.Request) (*llm.Response, error) {
		switch req.Operation {
		case decomposition.OperationTasks:
			return llmtest.JSON(map[string]any{"tasks": []map[string]any{
				{"task_name": "Client sessions", "time_share": 0.5},
				{"task_name": "Writing reports", "time_share": 0.25},
				{"task_name": "Scheduling", "time_share": 0.25},
			}}), nil
		case decomposition.OperationSkills:
			return llmtest.JSON(map[string]any{"skills": []map[string]any{
				{"skill_name": "Empathy", "importance": 0.5},
				{"skill_name": "Note taking", "importance": 0.25},
				{"skill_name": "Diagnostics", "importance": 0.25},
			}}), nil
		case scoring.OperationScoreTask, scoring.OperationScoreSkill:
			return llmtest.JSON(map[string]float64{"automation_score": 0.5}), nil
		case narrative.OperationScenarios:
			return llmtest.JSON(map[string]any{"scenarios": []map[string]string{
				{"title": "Augmented practice", "description": "AI drafts notes.", "likelihood": "medium"},
			}}), nil
		case narrative.OperationCareers:
			careers := []map[string]any{}
			for _, title := range []string{"Counsellor", "HR Specialist", "Coach"} {
				careers = append(careers, map[string]any{
					"job_title": title, "reason": "listening", "transferable_skills": []string{"empathy"},
					"new_skills_needed": []string{}, "ease_of_transition": "high",
				})
			}
			return llmtest.JSON(map[string]any{"careers": careers}), nil
		case roadmap.OperationDraw:
			return llmtest.Text("flowchart TD\n    A --> B"), nil
		}
		return nil, errors.New("unexpected operation " + req.Operation)
	})
}

type acceptAll struct{}

func (acceptAll) Validate(context.Context, string) (validation.Verdict, error) {
	return validation.Verdict{OK: true}, nil
}

// withFakes swaps the client and validator constructors for the duration of a test.
func withFakes(t *testing.T, client llm.Client) {
	t.Helper()
	origClient, origValidator := newLLMClient, newValidator
	newLLMClient = func(context.Context, *llm.Config, string, *zap.Logger) (llm.Client, error) {
		return client, nil
	}
	newValidator = func(*config.Config) validation.Validator { return acceptAll{} }
	t.Cleanup(func() {
		newLLMClient, newValidator = origClient, origValidator
	})
}

func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("EXPOSURE_LOG_LEVEL", "error")
	t.Setenv("GOOGLE_SEARCH_API_KEY", "")
	t.Setenv("GOOGLE_SEARCH_CX", "")

	// Flag values and their Changed marks outlive a single Execute.
	for _, fs := range []*pflag.FlagSet{analyzeCmd.Flags(), rootCmd.PersistentFlags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyzeCommand_MissingProfileFlag(t *testing.T) {
	_, _, err := executeCommand(t, "analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "profile" not set`)
}

func TestAnalyzeCommand_InvalidProfile(t *testing.T) {
	path := writeFile(t, "profile.json", `{"age": "25"}`)

	_, _, err := executeCommand(t, "analyze", "--profile", path, "--api-key", "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid profile")
}

func TestAnalyzeCommand_MalformedProfile(t *testing.T) {
	path := writeFile(t, "profile.json", `{not json`)

	_, _, err := executeCommand(t, "analyze", "--profile", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse profile JSON")
}

func TestAnalyzeCommand_MissingAPIKey(t *testing.T) {
	path := writeFile(t, "profile.json", validProfile)

	_, _, err := executeCommand(t, "analyze", "--profile", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY environment variable or --api-key flag is required")
}

func TestAnalyzeCommand_WritesResultToStdout(t *testing.T) {
	client := scriptedClient()
	withFakes(t, client)
	path := writeFile(t, "profile.json", validProfile)

	stdout, _, err := executeCommand(t, "analyze", "--profile", path, "--api-key", "test-key")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, "medium", result["risk_level"])
	assert.InDelta(t, 0.5, result["aggregate"].(map[string]any)["weighted_final_score"], 1e-9)
	assert.Len(t, result["career_recommendations"], 3)
	assert.True(t, client.Closed())
}

func TestAnalyzeCommand_OutputFileAndVerbose(t *testing.T) {
	withFakes(t, scriptedClient())
	path := writeFile(t, "profile.json", validProfile)
	outPath := filepath.Join(t.TempDir(), "result.json")

	stdout, stderr, err := executeCommand(t, "analyze", "-p", path, "-o", outPath, "--api-key", "test-key", "--verbose")
	require.NoError(t, err)

	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "[decompose]")
	assert.Contains(t, stderr, "AUTOMATION EXPOSURE")
	assert.Contains(t, stderr, "ALTERNATIVE CAREERS")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"task_automation_breakdown"`))
}
