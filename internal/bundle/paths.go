package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	codeFolderName    = "code"
	pluginsFolderName = "plugins"
	responseFileName  = "response.yaml"
)

// ErrEntryPointNotFound signals a corrupted or incomplete bundle: the
// descriptor names no entry point to execute.
var ErrEntryPointNotFound = errors.New("entry point not found in function configuration")

// ExecutionPaths is the filesystem layout of one invocation. The bundle,
// code and plugins folders must already exist (the bundle is pre-extracted
// by the supervisor); only response and output folders are created here.
type ExecutionPaths struct {
	BundleFolder   string
	ResponseFolder string
	OutputFolder   string
	RequestFile    string
}

func (p ExecutionPaths) CodeFolder() string {
	return filepath.Join(p.BundleFolder, codeFolderName)
}

func (p ExecutionPaths) PluginsFolder() string {
	return filepath.Join(p.BundleFolder, pluginsFolderName)
}

func (p ExecutionPaths) ResponseFile() string {
	return filepath.Join(p.ResponseFolder, responseFileName)
}

// FunctionFile resolves the entry-point file inside the code folder. This
// is the canonical way an incomplete bundle is detected.
func (p ExecutionPaths) FunctionFile(config *FunctionConfig) (string, error) {
	if config == nil || config.EntryPoint.IsZero() {
		return "", ErrEntryPointNotFound
	}
	path := filepath.Join(p.CodeFolder(), config.EntryPoint.File)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("entry point %s missing from bundle: %w", config.EntryPoint.File, err)
	}
	return path, nil
}

// CreateRequiredFolders is idempotent; calling it twice is safe.
func (p ExecutionPaths) CreateRequiredFolders() error {
	if err := os.MkdirAll(p.ResponseFolder, 0o755); err != nil {
		return fmt.Errorf("create response folder: %w", err)
	}
	if err := os.MkdirAll(p.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}
	return nil
}
