package tool

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// FilesystemOptions constrains the file tools.
type FilesystemOptions struct {
	// MaxFileSize caps the bytes read or written in one call.
	MaxFileSize int
	// HiddenPaths are doublestar glob patterns neither tool may touch.
	HiddenPaths []string
	// ReadOnlyPaths are doublestar glob patterns the write tool may not touch.
	ReadOnlyPaths []string
	// AllowBinary permits reading files containing NUL bytes.
	AllowBinary bool
	// CreateDirectories makes file_write create missing parent directories.
	CreateDirectories bool
}

const defaultMaxFileSize = 10 << 20 // 10 MiB

func defaultFilesystemOptions() FilesystemOptions {
	return FilesystemOptions{
		MaxFileSize:       defaultMaxFileSize,
		CreateDirectories: true,
	}
}

// resolvePath anchors relative paths at the execution working directory and
// rejects paths matching any hidden pattern.
func resolvePath(execCtx ExecContext, path string, opts FilesystemOptions) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	if !filepath.IsAbs(path) && execCtx.WorkingDir != "" {
		path = filepath.Join(execCtx.WorkingDir, path)
	}
	path = filepath.Clean(path)

	restricted, err := matchesAny(path, opts.HiddenPaths)
	if err != nil {
		return "", err
	}
	if restricted {
		return "", fmt.Errorf("access denied: path %q is hidden", path)
	}

	return path, nil
}

// matchesAny checks a path against doublestar glob patterns.
func matchesAny(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// FileReadTool reads file contents within the configured restrictions.
type FileReadTool struct {
	opts FilesystemOptions
}

// NewFileReadTool constructs the file reading tool.
func NewFileReadTool(optFns ...func(o *FilesystemOptions)) *FileReadTool {
	opts := defaultFilesystemOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &FileReadTool{opts: opts}
}

// Name returns the tool identifier.
func (t *FileReadTool) Name() string { return "file_read" }

// Description returns the tool description shown to the model.
func (t *FileReadTool) Description() string {
	return "Read the entire content of a file. Relative paths resolve against the working directory."
}

// Parameters returns the JSON schema for the path argument.
func (t *FileReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to read",
			},
		},
		"required": []string{"path"},
	}
}

// Execute reads the file, enforcing size and binary restrictions.
func (t *FileReadTool) Execute(execCtx ExecContext, args map[string]any) (string, error) {
	raw, _ := args["path"].(string)
	path, err := resolvePath(execCtx, raw, t.opts)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %q: %w", path, err)
	}
	if t.opts.MaxFileSize > 0 && info.Size() > int64(t.opts.MaxFileSize) {
		return "", fmt.Errorf("file %q exceeds the %d byte read limit", path, t.opts.MaxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %q: %w", path, err)
	}
	if !t.opts.AllowBinary && bytes.IndexByte(content, 0) >= 0 {
		return "", fmt.Errorf("file %q appears to be binary", path)
	}

	return string(content), nil
}

// FileWriteTool writes file contents within the configured restrictions.
type FileWriteTool struct {
	opts FilesystemOptions
}

// NewFileWriteTool constructs the file writing tool.
func NewFileWriteTool(optFns ...func(o *FilesystemOptions)) *FileWriteTool {
	opts := defaultFilesystemOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &FileWriteTool{opts: opts}
}

// Name returns the tool identifier.
func (t *FileWriteTool) Name() string { return "file_write" }

// Description returns the tool description shown to the model.
func (t *FileWriteTool) Description() string {
	return "Write content to a file, replacing it entirely. Relative paths resolve against the working directory."
}

// Parameters returns the JSON schema for the path and content arguments.
func (t *FileWriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path of the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Full content to write",
			},
		},
		"required": []string{"path", "content"},
	}
}

// Execute writes the file, honoring sandbox mode and path restrictions.
func (t *FileWriteTool) Execute(execCtx ExecContext, args map[string]any) (string, error) {
	if execCtx.Sandbox == SandboxReadOnly {
		return "", fmt.Errorf("file writes are disabled in read-only sandbox mode")
	}

	raw, _ := args["path"].(string)
	content, _ := args["content"].(string)

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

	if t.opts.MaxFileSize > 0 && len(content) > t.opts.MaxFileSize {
		return "", fmt.Errorf("content exceeds the %d byte write limit", t.opts.MaxFileSize)
	}

	if t.opts.CreateDirectories {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("failed to create parent directories for %q: %w", path, err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file %q: %w", path, err)
	}

	return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
}
