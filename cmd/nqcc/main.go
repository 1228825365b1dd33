package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rainierwolfcastle/nqcc/pkg/cli"
	"github.com/rainierwolfcastle/nqcc/pkg/compiler"
	"github.com/rainierwolfcastle/nqcc/pkg/config"
	"github.com/rainierwolfcastle/nqcc/pkg/ir"
	"github.com/rainierwolfcastle/nqcc/pkg/util"
)

func main() {
	app := cli.NewApp("nqcc")
	app.Synopsis = "[options] <file.c>"
	app.Description = "A compiler for a subset of C that targets x86-64. Source is preprocessed and linked with the system's 'cc'."
	app.Repository = "<https://github.com/rainierwolfcastle/nqcc>"

	var (
		outFile     string
		target      string
		linkerArgs  []string
		stopLex     bool
		stopParse   bool
		stopValid   bool
		stopTacky   bool
		stopCodegen bool
		asmOnly     bool
		objOnly     bool
		dumpIR      bool
		wall        bool
		werror      bool
		quiet       bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&target, "target", "t", "x86_64", "Select the backend: 'x86_64' or 'qbe[/<qbe-target>]'.", "backend")
	fs.List(&linkerArgs, "linker-arg", "L", []string{}, "Pass an argument to the linker.", "arg")
	fs.Bool(&stopLex, "lex", "", false, "Stop after lexing.")
	fs.Bool(&stopParse, "parse", "", false, "Stop after parsing.")
	fs.Bool(&stopValid, "validate", "", false, "Stop after semantic analysis.")
	fs.Bool(&stopTacky, "tacky", "", false, "Stop after generating TACKY.")
	fs.Bool(&stopCodegen, "codegen", "", false, "Stop after instruction selection and legalization.")
	fs.Bool(&asmOnly, "S", "", false, "Write assembly next to the input and stop.")
	fs.Bool(&objOnly, "c", "", false, "Assemble to an object file without linking.")
	fs.Bool(&dumpIR, "dump-ir", "d", false, "Print the TACKY intermediate representation and exit.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&werror, "Werror", "", false, "Treat warnings as errors.")
	fs.Bool(&quiet, "quiet", "q", false, "Do not print progress messages.")

	cfg := config.NewConfig()
	warningFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		if len(inputFiles) != 1 {
			err := fmt.Errorf("expected exactly one input file, got %d", len(inputFiles))
			util.Report(err)
			return err
		}
		input := inputFiles[0]

		cfg.Quiet = quiet
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			util.Report(err)
			return err
		}
		if wall {
			cfg.ApplyWarningFlag("-Wall")
		}
		cfg.ApplyFlagGroups(warningFlags)
		if werror {
			cfg.ApplyWarningFlag("-Werror")
		}
		cfg.LinkerArgs = append(cfg.LinkerArgs, linkerArgs...)

		stop := config.StageAll
		switch {
		case stopLex:
			stop = config.StageLex
		case stopParse:
			stop = config.StageParse
		case stopValid:
			stop = config.StageValidate
		case stopTacky, dumpIR:
			stop = config.StageTacky
		case stopCodegen:
			stop = config.StageCodegen
		}

		c := compiler.New(cfg)
		if !quiet {
			c.Progress = os.Stdout
			fmt.Println("----------------------")
			fmt.Printf("Preprocessing '%s'...\n", input)
		}

		source, err := preprocess(input)
		if err != nil {
			util.Report(err)
			return err
		}
		util.SetSourceFiles([]util.SourceFileRecord{{Name: input, Content: source}})

		res, err := c.Compile(source, 0, stop)
		if err != nil {
			util.Report(err)
			return err
		}

		if dumpIR {
			ir.Dump(os.Stdout, res.IR)
			return nil
		}
		if stop != config.StageAll {
			return nil
		}

		base := strings.TrimSuffix(input, filepath.Ext(input))
		if asmOnly {
			asmFile := base + ".s"
			if outFile != "" {
				asmFile = outFile
			}
			if err := os.WriteFile(asmFile, res.Output.Bytes(), 0o644); err != nil {
				util.Report(err)
				return err
			}
			return done(quiet)
		}

		if outFile == "" {
			outFile = base
			if objOnly {
				outFile = base + ".o"
			}
		}
		if !quiet {
			fmt.Printf("Assembling to create '%s'...\n", outFile)
		}
		if err := assembleAndLink(outFile, res.Output.String(), objOnly, cfg.LinkerArgs); err != nil {
			util.Report(err)
			return err
		}
		return done(quiet)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func done(quiet bool) error {
	if !quiet {
		fmt.Println("----------------------")
		fmt.Println("Done!")
	}
	return nil
}

// preprocess runs the system preprocessor on path and returns its output.
func preprocess(path string) ([]rune, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("could not read file '%s': %w", path, err)
	}
	outFile, err := os.CreateTemp("", "nqcc-*.i")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for preprocessed source: %w", err)
	}
	outFile.Close()
	defer os.Remove(outFile.Name())

	cmd := exec.Command("cc", "-E", "-P", path, "-o", outFile.Name())
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("preprocessor failed: %w\nOutput:\n%s", err, string(output))
	}
	content, err := os.ReadFile(outFile.Name())
	if err != nil {
		return nil, err
	}
	return []rune(string(content)), nil
}

func assembleAndLink(outFile, asm string, objOnly bool, linkerArgs []string) error {
	asmFile, err := os.CreateTemp("", "nqcc-*.s")
	if err != nil {
		return fmt.Errorf("failed to create temp file for assembly: %w", err)
	}
	defer os.Remove(asmFile.Name())
	if _, err := asmFile.WriteString(asm); err != nil {
		asmFile.Close()
		return fmt.Errorf("failed to write assembly: %w", err)
	}
	asmFile.Close()

	ccArgs := []string{"-o", outFile, asmFile.Name()}
	if objOnly {
		ccArgs = append([]string{"-c"}, ccArgs...)
	} else {
		ccArgs = append(ccArgs, linkerArgs...)
	}

	cmd := exec.Command("cc", ccArgs...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}
