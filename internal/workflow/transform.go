package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// runTransform executes a transform step: either a sandboxed WASI
// module (fed bindings as JSON on stdin, expected to write JSON to
// stdout) or a text/template rendered directly against bindings.
// workflowWorkspace is the workflow's persistent workspace root, which
// Module paths are resolved relative to.
func runTransform(ctx context.Context, spec *TransformSpec, bindings map[string]any, workflowWorkspace string) (map[string]any, error) {
	if spec.Module != "" {
		return runWASMTransform(ctx, filepath.Join(workflowWorkspace, spec.Module), bindings)
	}
	return runTemplateTransform(spec.Template, bindings)
}

// runWASMTransform runs a compiled WASI program under wazero, sandboxed
// with no filesystem or network access beyond stdio: bindings are
// marshaled to JSON and piped to stdin, and the module's stdout is
// parsed back as a JSON object of outputs.
func runWASMTransform(ctx context.Context, wasmPath string, bindings map[string]any) (map[string]any, error) {
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, fmt.Errorf("read transform module %s: %w", wasmPath, err)
	}

	input, err := json.Marshal(bindings)
	if err != nil {
		return nil, fmt.Errorf("marshal transform input: %w", err)
	}

	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile transform module: %w", err)
	}

	var stdout, stderr bytes.Buffer
	modConfig := wazero.NewModuleConfig().
		WithStdin(bytes.NewReader(input)).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithArgs("transform")

	mod, err := runtime.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		return nil, fmt.Errorf("run transform module: %w (stderr: %s)", err, stderr.String())
	}
	defer mod.Close(ctx)

	var out map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("parse transform output as JSON object: %w", err)
	}
	return out, nil
}

// runTemplateTransform renders tmplText against bindings and returns the
// result under the "output" key, for mappings too small to warrant a
// compiled module.
func runTemplateTransform(tmplText string, bindings map[string]any) (map[string]any, error) {
	tmpl, err := template.New("transform").Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("parse transform template: %w", err)
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, bindings); err != nil {
		return nil, fmt.Errorf("render transform template: %w", err)
	}
	return map[string]any{"output": buf.String()}, nil
}
