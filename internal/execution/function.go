package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/tabsdata-labs/tabsdata-go/internal/frame"
	"github.com/tabsdata-labs/tabsdata-go/internal/source"
)

// Call is everything the user function sees for one invocation.
type Call struct {
	Inputs       []source.Input
	Offset       map[string]string
	TriggeredOn  time.Time
	OutputTables []string
}

// Result is what the function hands back: one entry per declared output
// table (nil entries allowed), plus an optional checkpoint update.
type Result struct {
	Outputs      []*frame.Frame
	OffsetUpdate any
}

// Function is the boundary to user code. The default implementation runs
// the bundled entry point in its own process; tests install in-process
// fakes through Context.SetFunction.
type Function interface {
	Call(ctx context.Context, call Call) (Result, error)
}

// subprocessFunction executes the bundle's entry-point file, exchanging
// snapshots through a private folder:
//
//	<entry> --function <name> --input <dir> --offset <file> --output <dir>
//
// Inputs are staged as <name>.json (or <name>.<i>.json for version
// groups); the function writes one <table>.json per produced output and
// may rewrite offset.json.
type subprocessFunction struct {
	logger       *slog.Logger
	file         string
	functionName string
	workFolder   string
}

func newSubprocessFunction(logger *slog.Logger, file, functionName, workFolder string) *subprocessFunction {
	return &subprocessFunction{
		logger:       logger,
		file:         file,
		functionName: functionName,
		workFolder:   workFolder,
	}
}

func (f *subprocessFunction) Call(ctx context.Context, call Call) (Result, error) {
	inputFolder := filepath.Join(f.workFolder, "fn-input")
	outputFolder := filepath.Join(f.workFolder, "fn-output")
	for _, folder := range []string{inputFolder, outputFolder} {
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return Result{}, fmt.Errorf("create function exchange folder: %w", err)
		}
	}

	if err := f.stageInputs(inputFolder, call.Inputs); err != nil {
		return Result{}, err
	}
	offsetPath := filepath.Join(inputFolder, "offset.json")
	if err := writeJSONFile(offsetPath, call.Offset); err != nil {
		return Result{}, err
	}

	cmd := exec.CommandContext(ctx, f.file,
		"--function", f.functionName,
		"--input", inputFolder,
		"--offset", offsetPath,
		"--output", outputFolder,
	)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	f.logger.Info("running user function", "entry_point", filepath.Base(f.file), "function", f.functionName)
	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("user function failed: %w", err)
	}

	return f.collect(outputFolder, offsetPath, call)
}

func (f *subprocessFunction) stageInputs(folder string, inputs []source.Input) error {
	for _, input := range inputs {
		if input.Frames != nil {
			for i, version := range input.Frames {
				if version == nil {
					continue
				}
				name := fmt.Sprintf("%s.%d.json", input.Name, i)
				if err := stageFrame(filepath.Join(folder, name), version); err != nil {
					return err
				}
			}
			continue
		}
		if input.Frame == nil {
			continue
		}
		if err := stageFrame(filepath.Join(folder, input.Name+".json"), input.Frame); err != nil {
			return err
		}
	}
	return nil
}

func (f *subprocessFunction) collect(outputFolder, offsetPath string, call Call) (Result, error) {
	result := Result{Outputs: make([]*frame.Frame, len(call.OutputTables))}
	for i, table := range call.OutputTables {
		raw, err := os.ReadFile(filepath.Join(outputFolder, table+".json"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("read function output for %s: %w", table, err)
		}
		parsed, err := frame.Unmarshal(raw)
		if err != nil {
			return Result{}, fmt.Errorf("function output for %s invalid: %w", table, err)
		}
		result.Outputs[i] = parsed
	}

	raw, err := os.ReadFile(offsetPath)
	if err != nil {
		return Result{}, fmt.Errorf("read function offset: %w", err)
	}
	var update map[string]string
	if err := json.Unmarshal(raw, &update); err != nil {
		return Result{}, fmt.Errorf("function offset invalid: %w", err)
	}
	if !sameStringMap(update, call.Offset) {
		result.OffsetUpdate = update
	}
	return result, nil
}

func stageFrame(path string, f *frame.Frame) error {
	raw, err := frame.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("stage function input %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSONFile(path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if value == nil {
		raw = []byte("{}")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func sameStringMap(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for key, value := range a {
		if b[key] != value {
			return false
		}
	}
	return true
}
