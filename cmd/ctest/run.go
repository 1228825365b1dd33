package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type TargetResult struct {
	BinaryPath string     `json:"binary_path,omitempty"`
	Compile    Execution  `json:"compile"`
	Run        *Execution `json:"run,omitempty"`
}

type FileTestResult struct {
	File      string        `json:"file"`
	Status    string        `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message   string        `json:"message,omitempty"`
	Diff      string        `json:"diff,omitempty"`
	Reference *TargetResult `json:"reference,omitempty"`
	Target    *TargetResult `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

func lookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// executeCommand runs a command with a timeout and captures its output.
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(startTime)}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		res.TimedOut = true
		res.ExitCode = -1
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.ExitCode = -2
		res.Stderr += "\nExecution error: " + err.Error()
	}
	return res
}

func compileAndRun(compiler string, compilerArgs []string, sourceFile, tempDir, binaryName string) (*TargetResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	binaryPath := filepath.Join(tempDir, binaryName)
	args := append([]string{"-o", binaryPath}, compilerArgs...)
	args = append(args, sourceFile)

	compileResult := executeCommand(ctx, compiler, args...)
	if compileResult.ExitCode != 0 || compileResult.TimedOut {
		return &TargetResult{Compile: compileResult}, fmt.Errorf("compilation failed with exit code %d", compileResult.ExitCode)
	}
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		return &TargetResult{Compile: compileResult}, fmt.Errorf("compilation succeeded but binary was not created at %s", binaryPath)
	}

	runCtx, runCancel := context.WithTimeout(context.Background(), *timeout)
	defer runCancel()
	run := executeCommand(runCtx, binaryPath)
	return &TargetResult{BinaryPath: binaryPath, Compile: compileResult, Run: &run}, nil
}

// judge decides a file's status. A file both compilers reject passes, so
// programs that must not compile can live next to the ones that must run.
func judge(file string, ref *TargetResult, refErr error, target *TargetResult, targetErr error, ignored []string) *FileTestResult {
	res := &FileTestResult{File: file, Reference: ref, Target: target}
	switch {
	case refErr != nil && targetErr != nil:
		res.Status, res.Message = "PASS", "Both compilers failed to compile as expected"
	case targetErr != nil:
		res.Status, res.Message = "FAIL", "Target compiler failed, but reference compiler succeeded"
		res.Diff = fmt.Sprintf("Target Compiler STDERR:\n%s", target.Compile.Stderr)
	case refErr != nil:
		res.Status, res.Message = "FAIL", "Target compiler succeeded, but reference compiler failed"
		res.Diff = fmt.Sprintf("Reference Compiler STDERR:\n%s", ref.Compile.Stderr)
	default:
		if diff := compareRuns(ref, target, ignored); diff != "" {
			res.Status, res.Message, res.Diff = "FAIL", "Runtime output or exit code mismatch", diff
		} else {
			res.Status, res.Message = "PASS", "Exit code and output match"
		}
	}
	return res
}

func compareRuns(ref, target *TargetResult, ignored []string) string {
	if ref.Run == nil || target.Run == nil {
		return "Missing run result.\n"
	}
	var diffs strings.Builder
	if ref.Run.ExitCode != target.Run.ExitCode {
		fmt.Fprintf(&diffs, "Exit Code mismatch:\n  - Ref:    %d\n  - Target: %d\n", ref.Run.ExitCode, target.Run.ExitCode)
	}
	if ref.Run.TimedOut != target.Run.TimedOut {
		fmt.Fprintf(&diffs, "Timeout mismatch:\n  - Ref:    %v\n  - Target: %v\n", ref.Run.TimedOut, target.Run.TimedOut)
	}
	refStdout := normalize(filterOutput(ref.Run.Stdout, ignored), ref.BinaryPath)
	targetStdout := normalize(filterOutput(target.Run.Stdout, ignored), target.BinaryPath)
	if refStdout != targetStdout {
		fmt.Fprintf(&diffs, "STDOUT mismatch:\n%s", cmp.Diff(refStdout, targetStdout))
	}
	return diffs.String()
}

const binaryPlaceholder = "__BINARY__"

// normalize replaces a program's own path, which it may print via argv[0].
func normalize(out, binaryPath string) string {
	if binaryPath == "" {
		return out
	}
	out = strings.ReplaceAll(out, binaryPath, binaryPlaceholder)
	return strings.ReplaceAll(out, filepath.Base(binaryPath), binaryPlaceholder)
}

// filterOutput removes lines containing any of the given substrings.
func filterOutput(output string, ignoredSubstrings []string) string {
	if len(ignoredSubstrings) == 0 || output == "" {
		return output
	}
	lines := strings.Split(output, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		ignore := false
		for _, sub := range ignoredSubstrings {
			if sub != "" && strings.Contains(line, sub) {
				ignore = true
				break
			}
		}
		if !ignore {
			filtered = append(filtered, line)
		}
	}
	return strings.Join(filtered, "\n")
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil || seen[absFile] {
				continue
			}
			if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
				allFiles = append(allFiles, absFile)
				seen[absFile] = true
			}
		}
	}
	return allFiles, nil
}
