// Command ctest compiles C test programs with a target and a reference
// compiler, runs both binaries and compares their exit codes and output.
// Results can be recorded as golden files and replayed without the reference.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
)

var (
	refCompiler    = flag.String("ref-compiler", "cc", "Path to the reference compiler.")
	refArgs        = flag.String("ref-args", "", "Arguments for the reference compiler (space-separated).")
	targetCompiler = flag.String("target-compiler", "./nqcc", "Path to the target compiler to test.")
	targetArgs     = flag.String("target-args", "-q", "Arguments for the target compiler (space-separated).")
	generateGolden = flag.Bool("generate-golden", false, "Write a golden .json file for every test file using the reference compiler.")
	testFiles      = flag.String("test-files", "tests/*.c", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each command execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	useCache       = flag.Bool("cached", false, "Prefer golden files over the reference compiler.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	ignoreLines    = flag.String("ignore-lines", "", "Comma-separated substrings to ignore during output comparison.")
)

const (
	cRed     = "\x1b[91m"
	cYellow  = "\x1b[93m"
	cGreen   = "\x1b[92m"
	cCyan    = "\x1b[96m"
	cMagenta = "\x1b[95m"
	cBold    = "\x1b[1m"
	cNone    = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "ctest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	if *generateGolden {
		handleGenerateGolden(files, tempDir)
		return
	}
	if hasFailures(handleRunTestSuite(files, tempDir)) {
		os.Exit(1)
	}
}

func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

// Golden is the recorded reference behaviour of one source file.
type Golden struct {
	SourceHash string        `json:"source_hash"`
	Result     *TargetResult `json:"result"`
}

func goldenDir(sourceFile string) string {
	if *jsonDir != "" {
		return *jsonDir
	}
	return filepath.Dir(sourceFile)
}

func getJSONPath(sourceFile string) string {
	return filepath.Join(goldenDir(sourceFile), "."+filepath.Base(sourceFile)+".json")
}

// lockDir takes the golden-file lock for dir, shared by every ctest process.
func lockDir(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(dir, ".ctest.lock"))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire golden lock: %w", err)
	}
	return lock, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func writeGolden(sourceFile string, g *Golden) error {
	lock, err := lockDir(goldenDir(sourceFile))
	if err != nil {
		return err
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(getJSONPath(sourceFile), data, 0644)
}

// readGolden loads the golden file for sourceFile. A golden file recorded for
// different source contents is reported as missing.
func readGolden(sourceFile, fileHash string) (*Golden, bool, error) {
	lock, err := lockDir(goldenDir(sourceFile))
	if err != nil {
		return nil, false, err
	}
	defer lock.Unlock()

	data, err := os.ReadFile(getJSONPath(sourceFile))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var g Golden
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, false, err
	}
	if g.SourceHash != fileHash || g.Result == nil {
		return nil, false, nil
	}
	return &g, true, nil
}

func handleGenerateGolden(files []string, tempDir string) {
	for _, file := range files {
		fileHash, err := hashFile(file)
		if err != nil {
			log.Fatalf("%s[ERROR]%s Could not hash source file %s: %v\n", cRed, cNone, file, err)
		}
		result, _ := compileAndRun(*refCompiler, strings.Fields(*refArgs), file, tempDir, "ref-"+fileHash)
		if err := writeGolden(file, &Golden{SourceHash: fileHash, Result: result}); err != nil {
			log.Fatalf("%s[ERROR]%s Failed to write golden file for %s: %v\n", cRed, cNone, file, err)
		}
		log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, getJSONPath(file))
	}
}

func handleRunTestSuite(files []string, tempDir string) TestSuiteResults {
	refCompilerFound := lookPath(*refCompiler)
	if !refCompilerFound && !*useCache {
		log.Printf("%s[WARN]%s Reference compiler '%s' not found. Will rely on golden files.\n", cYellow, cNone, *refCompiler)
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < max(*jobs, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, tempDir, refCompilerFound)
			}
		}()
	}

	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool { return allResults[i].File < allResults[j].File })

	printSummary(os.Stdout, allResults)
	return writeJSONReport(allResults)
}

func testFile(file, tempDir string, refCompilerFound bool) *FileTestResult {
	fileHash, err := hashFile(file)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: "Failed to hash source file"}
	}

	golden, hasGolden, err := readGolden(file, fileHash)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file: %v", err)}
	}

	var ref *TargetResult
	var refErr error
	switch {
	case hasGolden && (*useCache || !refCompilerFound):
		ref = golden.Result
		if ref.Compile.ExitCode != 0 {
			refErr = fmt.Errorf("golden compilation failed")
		}
	case refCompilerFound:
		ref, refErr = compileAndRun(*refCompiler, strings.Fields(*refArgs), file, tempDir, "ref-"+fileHash)
	default:
		return &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Reference compiler '%s' not found and no golden file exists", *refCompiler)}
	}

	target, targetErr := compileAndRun(*targetCompiler, strings.Fields(*targetArgs), file, tempDir, "target-"+fileHash)
	return judge(file, ref, refErr, target, targetErr, splitIgnored(*ignoreLines))
}

func splitIgnored(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
