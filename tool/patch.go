package tool

import (
	"fmt"
	"os"
	"strings"
)

// ApplyPatchTool performs targeted in-place edits: it replaces an exact text
// fragment within a file with new text. The old fragment must occur exactly
// once so edits stay unambiguous.
type ApplyPatchTool struct {
	opts FilesystemOptions
}

// NewApplyPatchTool constructs the patch tool. It shares the filesystem
// restrictions of the file tools.
func NewApplyPatchTool(optFns ...func(o *FilesystemOptions)) *ApplyPatchTool {
	opts := defaultFilesystemOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ApplyPatchTool{opts: opts}
}

// Name returns the tool identifier.
func (t *ApplyPatchTool) Name() string { return "apply_patch" }

// Description returns the tool description shown to the model.
func (t *ApplyPatchTool) Description() string {
	return "Edit a file by replacing an exact text fragment with new text. The fragment must appear exactly once."
}

// Parameters returns the JSON schema for the patch arguments.
func (t *ApplyPatchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to edit",
			},
			"old_text": map[string]any{
				"type":        "string",
				"description": "Exact text to replace; must occur exactly once",
			},
			"new_text": map[string]any{
				"type":        "string",
				"description": "Replacement text",
			},
		},
		"required": []string{"path", "old_text", "new_text"},
	}
}

// Execute applies the edit, honoring sandbox mode and path restrictions.
func (t *ApplyPatchTool) Execute(execCtx ExecContext, args map[string]any) (string, error) {
	if execCtx.Sandbox == SandboxReadOnly {
		return "", fmt.Errorf("file edits are disabled in read-only sandbox mode")
	}

	raw, _ := args["path"].(string)
	oldText, _ := args["old_text"].(string)
	newText, _ := args["new_text"].(string)

	if oldText == "" {
		return "", fmt.Errorf("old_text must not be empty")
	}

	path, err := resolvePath(execCtx, raw, t.opts)
	if err != nil {
		return "", err
	}

	readOnly, err := matchesAny(path, t.opts.ReadOnlyPaths)
	if err != nil {
		return "", err
	}
	if readOnly {
		return "", fmt.Errorf("access denied: path %q is read-only", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %q: %w", path, err)
	}
	content := string(data)

	switch n := strings.Count(content, oldText); {
	case n == 0:
		return "", fmt.Errorf("old_text not found in %q", path)
	case n > 1:
		return "", fmt.Errorf("old_text occurs %d times in %q; it must occur exactly once", n, path)
	}

	patched := strings.Replace(content, oldText, newText, 1)
	if t.opts.MaxFileSize > 0 && len(patched) > t.opts.MaxFileSize {
		return "", fmt.Errorf("patched content exceeds the %d byte write limit", t.opts.MaxFileSize)
	}

	perm := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		perm = info.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(patched), perm); err != nil {
		return "", fmt.Errorf("failed to write file %q: %w", path, err)
	}

	return fmt.Sprintf("patched %s", path), nil
}
