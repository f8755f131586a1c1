package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/core"
)

func TestBashTool(t *testing.T) {
	t.Run("runs a command in the working directory", func(t *testing.T) {
		dir := t.TempDir()
		bash, err := NewBashTool()
		require.NoError(t, err)

		out, err := bash.Execute(ExecContext{WorkingDir: dir}, map[string]any{"command": "pwd"})

		require.NoError(t, err)
		assert.Contains(t, out, filepath.Base(dir))
	})

	t.Run("refuses commands outside the allowlist", func(t *testing.T) {
		bash, err := NewBashTool(func(o *BashOptions) {
			o.AllowedCommands = []string{`^echo\b`}
		})
		require.NoError(t, err)

		_, err = bash.Execute(ExecContext{}, map[string]any{"command": "rm -rf /tmp/x"})
		require.Error(t, err)

		out, err := bash.Execute(ExecContext{}, map[string]any{"command": "echo ok"})
		require.NoError(t, err)
		assert.Equal(t, "ok\n", out)
	})

	t.Run("refuses execution in read-only sandbox", func(t *testing.T) {
		bash, err := NewBashTool()
		require.NoError(t, err)

		_, err = bash.Execute(ExecContext{Sandbox: SandboxReadOnly}, map[string]any{"command": "echo hi"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "read-only")
	})

	t.Run("merges environment overrides", func(t *testing.T) {
		bash, err := NewBashTool(func(o *BashOptions) {
			o.Env = map[string]string{"GREETING": "hello"}
		})
		require.NoError(t, err)

		out, err := bash.Execute(ExecContext{
			Env: map[string]string{"NAME": "world"},
		}, map[string]any{"command": "echo \"$GREETING $NAME\""})

		require.NoError(t, err)
		assert.Equal(t, "hello world\n", out)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		bash, err := NewBashTool()
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = bash.Execute(ExecContext{Context: ctx}, map[string]any{"command": "sleep 5"})
		require.Error(t, err)
	})
}

func TestFileTools(t *testing.T) {
	t.Run("write then read round-trips", func(t *testing.T) {
		dir := t.TempDir()
		execCtx := ExecContext{WorkingDir: dir}

		write := NewFileWriteTool()
		_, err := write.Execute(execCtx, map[string]any{"path": "notes.txt", "content": "remember"})
		require.NoError(t, err)

		read := NewFileReadTool()
		out, err := read.Execute(execCtx, map[string]any{"path": "notes.txt"})
		require.NoError(t, err)
		assert.Equal(t, "remember", out)
	})

	t.Run("write refuses read-only sandbox", func(t *testing.T) {
		write := NewFileWriteTool()

		_, err := write.Execute(ExecContext{Sandbox: SandboxReadOnly}, map[string]any{
			"path": "x.txt", "content": "nope",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "read-only")
	})

	t.Run("hidden paths are unreachable", func(t *testing.T) {
		dir := t.TempDir()
		secret := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(secret, []byte("KEY=s3cret"), 0o600))

		read := NewFileReadTool(func(o *FilesystemOptions) {
			o.HiddenPaths = []string{"**/.env"}
		})

		_, err := read.Execute(ExecContext{WorkingDir: dir}, map[string]any{"path": ".env"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "hidden")
	})

	t.Run("read-only paths reject writes", func(t *testing.T) {
		dir := t.TempDir()
		write := NewFileWriteTool(func(o *FilesystemOptions) {
			o.ReadOnlyPaths = []string{"**/config/**"}
		})

		_, err := write.Execute(ExecContext{WorkingDir: dir}, map[string]any{
			"path": "config/app.yaml", "content": "x",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "read-only")
	})

	t.Run("size limit caps reads", func(t *testing.T) {
		dir := t.TempDir()
		big := filepath.Join(dir, "big.txt")
		require.NoError(t, os.WriteFile(big, make([]byte, 128), 0o644))

		read := NewFileReadTool(func(o *FilesystemOptions) {
			o.MaxFileSize = 64
		})

		_, err := read.Execute(ExecContext{WorkingDir: dir}, map[string]any{"path": "big.txt"})
		require.Error(t, err)
	})
}

func TestApplyPatchTool(t *testing.T) {
	writeFixture := func(t *testing.T, dir, content string) string {
		t.Helper()
		path := filepath.Join(dir, "main.txt")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("replaces a unique fragment", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFixture(t, dir, "alpha beta gamma")

		patch := NewApplyPatchTool()
		_, err := patch.Execute(ExecContext{WorkingDir: dir}, map[string]any{
			"path": "main.txt", "old_text": "beta", "new_text": "delta",
		})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "alpha delta gamma", string(data))
	})

	t.Run("rejects ambiguous fragments", func(t *testing.T) {
		dir := t.TempDir()
		writeFixture(t, dir, "dup dup")

		patch := NewApplyPatchTool()
		_, err := patch.Execute(ExecContext{WorkingDir: dir}, map[string]any{
			"path": "main.txt", "old_text": "dup", "new_text": "one",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly once")
	})

	t.Run("rejects missing fragments", func(t *testing.T) {
		dir := t.TempDir()
		writeFixture(t, dir, "content")

		patch := NewApplyPatchTool()
		_, err := patch.Execute(ExecContext{WorkingDir: dir}, map[string]any{
			"path": "main.txt", "old_text": "absent", "new_text": "x",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestWebSearchTool(t *testing.T) {
	t.Run("formats provider results", func(t *testing.T) {
		search, err := NewWebSearchTool(searcherFunc(func(_ context.Context, query string, _ int) ([]SearchResult, error) {
			assert.Equal(t, "golang", query)
			return []SearchResult{
				{Title: "The Go Programming Language", URL: "https://go.dev", Snippet: "Build simple, secure systems."},
			}, nil
		}))
		require.NoError(t, err)

		out, err := search.Execute(ExecContext{}, map[string]any{"query": "golang"})

		require.NoError(t, err)
		assert.Contains(t, out, "The Go Programming Language")
		assert.Contains(t, out, "https://go.dev")
	})

	t.Run("rejects empty queries", func(t *testing.T) {
		search, err := NewWebSearchTool(searcherFunc(func(_ context.Context, _ string, _ int) ([]SearchResult, error) {
			return nil, nil
		}))
		require.NoError(t, err)

		_, err = search.Execute(ExecContext{}, map[string]any{"query": "  "})
		require.Error(t, err)
	})
}

type searcherFunc func(ctx context.Context, query string, maxResults int) ([]SearchResult, error)

func (f searcherFunc) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	return f(ctx, query, maxResults)
}

func TestUpdatePlanTool(t *testing.T) {
	t.Run("forwards parsed todos to the updater", func(t *testing.T) {
		var captured []core.Todo
		plan, err := NewUpdatePlanTool(func(todos []core.Todo) (core.PlanSnapshot, error) {
			captured = todos
			return core.PlanSnapshot{Revision: 1, Todos: todos}, nil
		})
		require.NoError(t, err)

		out, err := plan.Execute(ExecContext{}, map[string]any{
			"todos": []any{
				map[string]any{"id": "t1", "content": "write tests", "status": "in_progress"},
				map[string]any{"content": "ship it", "status": "pending"},
			},
		})

		require.NoError(t, err)
		require.Len(t, captured, 2)
		assert.Equal(t, "t1", captured[0].ID)
		assert.Equal(t, core.TodoInProgress, captured[0].Status)
		assert.NotEmpty(t, captured[1].ID, "missing ids are generated")
		assert.Contains(t, out, "revision 1")
	})

	t.Run("surfaces updater rejections", func(t *testing.T) {
		plan, err := NewUpdatePlanTool(func(_ []core.Todo) (core.PlanSnapshot, error) {
			return core.PlanSnapshot{}, core.NewValidationError("todos", "duplicate id")
		})
		require.NoError(t, err)

		_, err = plan.Execute(ExecContext{}, map[string]any{
			"todos": []any{map[string]any{"content": "x", "status": "pending"}},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "rejected")
	})

	t.Run("rejects non-array todos", func(t *testing.T) {
		plan, err := NewUpdatePlanTool(func(_ []core.Todo) (core.PlanSnapshot, error) {
			return core.PlanSnapshot{}, nil
		})
		require.NoError(t, err)

		_, err = plan.Execute(ExecContext{}, map[string]any{"todos": "not-a-list"})
		require.Error(t, err)
	})
}
