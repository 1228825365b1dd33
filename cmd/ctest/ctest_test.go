package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(exit int, stdout string) *TargetResult {
	return &TargetResult{Run: &Execution{ExitCode: exit, Stdout: stdout}}
}

func TestJudge(t *testing.T) {
	compileErr := errors.New("compilation failed")
	failed := &TargetResult{Compile: Execution{ExitCode: 1, Stderr: "error: nope"}}

	tests := []struct {
		name       string
		ref        *TargetResult
		refErr     error
		target     *TargetResult
		targetErr  error
		wantStatus string
	}{
		{"same behaviour", result(3, "hi\n"), nil, result(3, "hi\n"), nil, "PASS"},
		{"both rejected", failed, compileErr, failed, compileErr, "PASS"},
		{"exit code differs", result(3, ""), nil, result(4, ""), nil, "FAIL"},
		{"stdout differs", result(0, "a\n"), nil, result(0, "b\n"), nil, "FAIL"},
		{"target rejects", result(0, ""), nil, failed, compileErr, "FAIL"},
		{"target accepts invalid", failed, compileErr, result(0, ""), nil, "FAIL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := judge("x.c", tt.ref, tt.refErr, tt.target, tt.targetErr, nil)
			assert.Equal(t, tt.wantStatus, got.Status, got.Diff)
		})
	}
}

func TestCompareRunsNormalizesBinaryPath(t *testing.T) {
	ref := &TargetResult{BinaryPath: "/tmp/a/ref-1", Run: &Execution{Stdout: "/tmp/a/ref-1: ok\n"}}
	target := &TargetResult{BinaryPath: "/tmp/a/target-1", Run: &Execution{Stdout: "/tmp/a/target-1: ok\n"}}
	assert.Empty(t, compareRuns(ref, target, nil))
}

func TestFilterOutput(t *testing.T) {
	assert.Equal(t, "keep\nalso", filterOutput("keep\ndrop me\nalso", []string{"drop"}))
	assert.Equal(t, "same", filterOutput("same", nil))
}

func TestGoldenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	*jsonDir = dir
	defer func() { *jsonDir = "" }()

	src := filepath.Join(dir, "prog.c")
	require.NoError(t, os.WriteFile(src, []byte("int main(void) { return 3; }\n"), 0644))
	hash, err := hashFile(src)
	require.NoError(t, err)
	assert.Len(t, hash, 16)

	_, ok, err := readGolden(src, hash)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, writeGolden(src, &Golden{SourceHash: hash, Result: result(3, "")}))
	g, ok, err := readGolden(src, hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, g.Result.Run.ExitCode)

	require.NoError(t, os.WriteFile(src, []byte("int main(void) { return 4; }\n"), 0644))
	newHash, err := hashFile(src)
	require.NoError(t, err)
	_, ok, err = readGolden(src, newHash)
	require.NoError(t, err)
	assert.False(t, ok, "stale golden file must be ignored")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, []*FileTestResult{
		{File: "a.c", Status: "PASS", Message: "ok"},
		{File: "b.c", Status: "FAIL", Message: "bad", Diff: "-1\n+2"},
		{File: "c.c", Status: "SKIP", Message: "skipped"},
	})
	out := buf.String()
	assert.Contains(t, out, "1 Passed")
	assert.Contains(t, out, "1 Failed")
	assert.Contains(t, out, "1 Skipped")
	assert.Contains(t, out, "--- Diff ---")
}
