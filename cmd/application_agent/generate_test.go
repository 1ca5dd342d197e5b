package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/application-assistant/internal/config"
	"github.com/jonathan/application-assistant/internal/fetch"
	"github.com/jonathan/application-assistant/internal/server"
	"github.com/jonathan/application-assistant/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGenerationRequest(t *testing.T) {
	resume := writeFile(t, "resume.txt", "Go developer")

	req, err := loadGenerationRequest("Backend engineer", resume, []string{"coverLetter", "resume", "coverLetter"})
	require.NoError(t, err)

	assert.Equal(t, "Backend engineer", req.JobDescription)
	assert.Equal(t, "Go developer", req.Resume)
	assert.Equal(t, []types.ToolName{types.ToolCoverLetter, types.ToolResume}, req.Tools)
}

func TestLoadGenerationRequest_Errors(t *testing.T) {
	resume := writeFile(t, "resume.txt", "Go developer")
	blank := writeFile(t, "blank.txt", "  \n")

	_, err := loadGenerationRequest("Backend engineer", filepath.Join(t.TempDir(), "none.txt"), []string{"resume"})
	assert.ErrorContains(t, err, "failed to read résumé")

	_, err = loadGenerationRequest("Backend engineer", blank, []string{"resume"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = loadGenerationRequest("  ", resume, []string{"resume"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = loadGenerationRequest("Backend engineer", resume, []string{"sonnet"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestLoadJobDescription(t *testing.T) {
	ctx := context.Background()
	fetcher := fetch.New()

	job, err := loadJobDescription(ctx, fetcher, writeFile(t, "job.txt", "Backend engineer"), "")
	require.NoError(t, err)
	assert.Equal(t, "Backend engineer", job)

	_, err = loadJobDescription(ctx, fetcher, filepath.Join(t.TempDir(), "none.txt"), "")
	assert.ErrorContains(t, err, "failed to read job description")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><nav>Jobs</nav><main><h1>Platform Engineer</h1><p>Run Kubernetes.</p></main></body></html>`))
	}))
	defer srv.Close()

	job, err = loadJobDescription(ctx, fetcher, "", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Platform Engineer\nRun Kubernetes.", job)

	_, err = loadJobDescription(ctx, fetcher, "", "not a url")
	assert.ErrorContains(t, err, "failed to fetch job posting")
}

func TestWriteOutputs(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, writeOutputs(dir, types.Outputs{
		types.ToolResume:      "Jane\n\n",
		types.ToolJobAnalyzer: "Analysis",
	}))

	data, err := os.ReadFile(filepath.Join(dir, "resume.md"))
	require.NoError(t, err)
	assert.Equal(t, "Jane\n", string(data))
	assert.FileExists(t, filepath.Join(dir, "jobAnalyzer.md"))
	assert.NoFileExists(t, filepath.Join(dir, "coverLetter.md"))
}

func TestToolNames(t *testing.T) {
	assert.Equal(t, []string{"resume", "coverLetter", "interviewPrep", "linkedin", "jobAnalyzer"}, toolNames(types.AllTools))
}

func TestTokenCommand(t *testing.T) {
	const secret = "cli-test-secret-0123456789"
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_EXPIRATION_HOURS", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "--user", "user-7", "--email", "u7@example.com"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	cfg, err := config.NewJWTConfig()
	require.NoError(t, err)
	claims, err := server.NewJWTService(cfg).ValidateToken(string(bytes.TrimSpace(out.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.GetIdentity().UserID)
	assert.Equal(t, "u7@example.com", claims.Email)
}
