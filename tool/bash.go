package tool

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"
)

// BashOptions configures the built-in shell tool.
type BashOptions struct {
	// AllowNetwork marks whether commands may reach the network. Enforcement
	// is delegated to the sandbox collaborator; the flag is surfaced in the
	// tool description so the model knows the constraint.
	AllowNetwork bool
	// AllowedCommands is an optional regex allowlist. Empty means every
	// command is permitted (subject to the sandbox mode).
	AllowedCommands []string
	// Env adds environment variables for every command, merged under the
	// per-call ExecContext overrides.
	Env map[string]string
}

// BashTool executes shell commands in the agent's working directory.
// Output captures combined stdout/stderr plus the exit status.
type BashTool struct {
	opts     BashOptions
	patterns []*regexp.Regexp
}

// NewBashTool constructs the shell tool, compiling the command allowlist.
// Invalid patterns are rejected here rather than at dispatch time.
func NewBashTool(optFns ...func(o *BashOptions)) (*BashTool, error) {
	opts := BashOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	patterns := make([]*regexp.Regexp, 0, len(opts.AllowedCommands))
	for _, p := range opts.AllowedCommands {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed command pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &BashTool{opts: opts, patterns: patterns}, nil
}

// Name returns the tool identifier.
func (t *BashTool) Name() string { return "bash" }

// Description returns the tool description shown to the model.
func (t *BashTool) Description() string {
	desc := "Execute a shell command in the working directory and return its combined output."
	if !t.opts.AllowNetwork {
		desc += " Network access is disabled."
	}
	if len(t.opts.AllowedCommands) > 0 {
		desc += " Allowed command patterns: " + strings.Join(t.opts.AllowedCommands, ", ") + "."
	}
	return desc
}

// Parameters returns the JSON schema for the command argument.
func (t *BashTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute",
			},
		},
		"required": []string{"command"},
	}
}

// Execute runs the command via `sh -c`, honoring the execution context's
// working directory, environment overrides, sandbox mode and cancellation.
func (t *BashTool) Execute(execCtx ExecContext, args map[string]any) (string, error) {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("command must not be empty")
	}

	if execCtx.Sandbox == SandboxReadOnly {
		return "", fmt.Errorf("shell execution is disabled in read-only sandbox mode")
	}

	if len(t.patterns) > 0 && !t.allowed(command) {
		return "", fmt.Errorf("command %q is not in the list of allowed commands", command)
	}

	cmd := exec.CommandContext(execCtx.Ctx(), "sh", "-c", command)
	cmd.Dir = execCtx.WorkingDir
	cmd.Env = mergeEnv(os.Environ(), t.opts.Env, execCtx.Env)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := execCtx.Ctx().Err(); ctxErr != nil {
			return "", fmt.Errorf("command cancelled: %w", ctxErr)
		}
		return "", fmt.Errorf("command failed: %w\noutput:\n%s", err, string(output))
	}

	return string(output), nil
}

func (t *BashTool) allowed(command string) bool {
	for _, re := range t.patterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

// mergeEnv layers override maps onto a base environment, later maps winning.
func mergeEnv(base []string, overrides ...map[string]string) []string {
	merged := map[string]string{}
	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i > 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	for _, m := range overrides {
		for k, v := range m {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}
