package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeBundle(t *testing.T, descriptor string) string {
	t.Helper()
	folder := t.TempDir()
	if err := os.MkdirAll(filepath.Join(folder, codeFolderName), 0o755); err != nil {
		t.Fatalf("mkdir code: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(folder, pluginsFolderName), 0o755); err != nil {
		t.Fatalf("mkdir plugins: %v", err)
	}
	if descriptor != "" {
		if err := os.WriteFile(filepath.Join(folder, ConfigFileName), []byte(descriptor), 0o644); err != nil {
			t.Fatalf("write descriptor: %v", err)
		}
	}
	return folder
}

const descriptor = `
entry_point:
  file: main.fn
  function: ingest
source:
  kind: table
  tables: [orders]
destination:
  kind: table
  tables: [enriched]
`

func TestLoadFunctionConfig(t *testing.T) {
	folder := writeBundle(t, descriptor)
	config, err := LoadFunctionConfig(folder)
	if err != nil {
		t.Fatalf("LoadFunctionConfig() err=%v", err)
	}
	if config.EntryPoint.File != "main.fn" || config.EntryPoint.Function != "ingest" {
		t.Fatalf("entry point wrong: %+v", config.EntryPoint)
	}
	if len(config.InputPlugins()) != 0 || len(config.OutputPlugins()) != 0 {
		t.Fatalf("absent plugin maps must read as empty")
	}
}

func TestLoadFunctionConfig_Missing(t *testing.T) {
	folder := writeBundle(t, "")
	if _, err := LoadFunctionConfig(folder); err == nil {
		t.Fatalf("expected error for missing descriptor")
	}
}

func TestLoadFunctionConfig_Malformed(t *testing.T) {
	folder := writeBundle(t, ":\n  - not yaml {{")
	if _, err := LoadFunctionConfig(folder); err == nil {
		t.Fatalf("expected error for malformed descriptor")
	}
}

func TestFunctionFile(t *testing.T) {
	folder := writeBundle(t, descriptor)
	config, err := LoadFunctionConfig(folder)
	if err != nil {
		t.Fatalf("LoadFunctionConfig() err=%v", err)
	}
	paths := ExecutionPaths{BundleFolder: folder}

	if _, err := paths.FunctionFile(config); err == nil {
		t.Fatalf("expected error while entry point file absent")
	}

	entry := filepath.Join(paths.CodeFolder(), "main.fn")
	if err := os.WriteFile(entry, []byte("fn"), 0o644); err != nil {
		t.Fatalf("write entry point: %v", err)
	}
	got, err := paths.FunctionFile(config)
	if err != nil {
		t.Fatalf("FunctionFile() err=%v", err)
	}
	if got != entry {
		t.Fatalf("FunctionFile()=%q, want %q", got, entry)
	}
}

func TestFunctionFile_NoEntryPoint(t *testing.T) {
	paths := ExecutionPaths{BundleFolder: t.TempDir()}
	_, err := paths.FunctionFile(&FunctionConfig{})
	if !errors.Is(err, ErrEntryPointNotFound) {
		t.Fatalf("err=%v, want ErrEntryPointNotFound", err)
	}
	if !strings.Contains(err.Error(), "entry point") {
		t.Fatalf("error must mention the entry point: %v", err)
	}
}

func TestCreateRequiredFolders_Idempotent(t *testing.T) {
	base := t.TempDir()
	paths := ExecutionPaths{
		BundleFolder:   base,
		ResponseFolder: filepath.Join(base, "response"),
		OutputFolder:   filepath.Join(base, "output"),
	}
	for i := 0; i < 2; i++ {
		if err := paths.CreateRequiredFolders(); err != nil {
			t.Fatalf("CreateRequiredFolders() call %d err=%v", i+1, err)
		}
	}
	if _, err := os.Stat(paths.ResponseFolder); err != nil {
		t.Fatalf("response folder missing: %v", err)
	}
	if got := paths.ResponseFile(); filepath.Base(got) != responseFileName {
		t.Fatalf("ResponseFile()=%q", got)
	}
}
