package agent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/model"
	"github.com/hupe1980/agentcore/tool"
	"github.com/hupe1980/agentcore/tool/mcp"
)

// ApprovalMode is the policy flag for command approval. Enforcement happens
// in the embedding application; the core carries the flag so tools and
// prompts can reflect it.
type ApprovalMode string

const (
	// ApprovalNever runs tools without asking.
	ApprovalNever ApprovalMode = "never"
	// ApprovalOnFailure asks only after a failed attempt.
	ApprovalOnFailure ApprovalMode = "on-failure"
	// ApprovalAlways asks before every mutating tool call.
	ApprovalAlways ApprovalMode = "always"
)

const (
	defaultMaxTurns    = 10
	defaultMaxRetries  = 3
	defaultRetryDelay  = 500 * time.Millisecond
	defaultToolTimeout = 60 * time.Second
	defaultMaxHistory  = 200
)

// Config is the immutable execution configuration. Build it through the
// Builder; the zero value is not usable.
type Config struct {
	Model        model.Model
	SystemPrompt string
	PromptVars   map[string]any
	Tools        []tool.Tool

	Sandbox  tool.SandboxMode
	Approval ApprovalMode

	MaxTurns       int
	MaxRetries     int
	RetryBaseDelay time.Duration
	ToolTimeout    time.Duration
	MaxHistory     int

	WorkingDir string
	Env        map[string]string

	MCPServers []mcp.ServerConfig

	// EnablePlanTool controls whether the update_plan tool is registered so
	// the model can interleave plan updates with its work.
	EnablePlanTool bool

	// Stream requests partial responses from the model backend.
	Stream bool

	Logger logging.Logger
}

// Builder assembles a Config in stages. Methods return the builder for
// chaining; Build validates and freezes the result.
type Builder struct {
	cfg Config
}

// NewBuilder starts a builder with the defaults applied.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		MaxTurns:       defaultMaxTurns,
		MaxRetries:     defaultMaxRetries,
		RetryBaseDelay: defaultRetryDelay,
		ToolTimeout:    defaultToolTimeout,
		MaxHistory:     defaultMaxHistory,
		Approval:       ApprovalNever,
		EnablePlanTool: true,
		Stream:         true,
		Logger:         logging.NoOpLogger{},
	}}
}

// Model sets the model backend. Required.
func (b *Builder) Model(m model.Model) *Builder { b.cfg.Model = m; return b }

// SystemPrompt sets the instruction text. It may contain template markers
// ({{.working_dir}}, {{.model}} and any PromptVars keys) rendered at agent
// construction.
func (b *Builder) SystemPrompt(prompt string) *Builder { b.cfg.SystemPrompt = prompt; return b }

// PromptVars sets additional template variables for the system prompt.
func (b *Builder) PromptVars(vars map[string]any) *Builder { b.cfg.PromptVars = vars; return b }

// Tools appends tools to register at construction time.
func (b *Builder) Tools(tools ...tool.Tool) *Builder {
	b.cfg.Tools = append(b.cfg.Tools, tools...)
	return b
}

// Sandbox sets the sandbox policy handed to every tool execution.
func (b *Builder) Sandbox(mode tool.SandboxMode) *Builder { b.cfg.Sandbox = mode; return b }

// Approval sets the approval policy flag.
func (b *Builder) Approval(mode ApprovalMode) *Builder { b.cfg.Approval = mode; return b }

// MaxTurns bounds the model calls spent on a single input message.
func (b *Builder) MaxTurns(n int) *Builder { b.cfg.MaxTurns = n; return b }

// MaxRetries bounds retry attempts after a transient model failure.
func (b *Builder) MaxRetries(n int) *Builder { b.cfg.MaxRetries = n; return b }

// RetryBaseDelay sets the first backoff delay; it doubles per attempt.
func (b *Builder) RetryBaseDelay(d time.Duration) *Builder { b.cfg.RetryBaseDelay = d; return b }

// ToolTimeout bounds a single tool dispatch.
func (b *Builder) ToolTimeout(d time.Duration) *Builder { b.cfg.ToolTimeout = d; return b }

// MaxHistory bounds the retained conversation entries.
func (b *Builder) MaxHistory(n int) *Builder { b.cfg.MaxHistory = n; return b }

// WorkingDir sets the directory tools execute in.
func (b *Builder) WorkingDir(dir string) *Builder { b.cfg.WorkingDir = dir; return b }

// Env sets environment overrides passed to tool executions.
func (b *Builder) Env(env map[string]string) *Builder { b.cfg.Env = env; return b }

// MCPServers configures external MCP tool providers connected via ConnectMCP.
func (b *Builder) MCPServers(servers ...mcp.ServerConfig) *Builder {
	b.cfg.MCPServers = append(b.cfg.MCPServers, servers...)
	return b
}

// EnablePlanTool toggles registration of the update_plan tool.
func (b *Builder) EnablePlanTool(enabled bool) *Builder { b.cfg.EnablePlanTool = enabled; return b }

// Stream toggles streaming model responses.
func (b *Builder) Stream(enabled bool) *Builder { b.cfg.Stream = enabled; return b }

// Logger sets the structured logger.
func (b *Builder) Logger(l logging.Logger) *Builder { b.cfg.Logger = l; return b }

// Build validates the staged configuration and returns the immutable Config.
// A missing model fails fast with *ConfigurationError; nothing is partially
// constructed.
func (b *Builder) Build() (Config, error) {
	cfg := b.cfg

	if cfg.Model == nil {
		return Config{}, &ConfigurationError{Field: "model", Message: "a model backend is required"}
	}
	if cfg.MaxTurns <= 0 {
		return Config{}, &ConfigurationError{Field: "max_turns", Message: "must be positive"}
	}
	if cfg.MaxRetries < 0 {
		return Config{}, &ConfigurationError{Field: "max_retries", Message: "must not be negative"}
	}
	if cfg.Approval != ApprovalNever && cfg.Approval != ApprovalOnFailure && cfg.Approval != ApprovalAlways {
		return Config{}, &ConfigurationError{
			Field:   "approval",
			Message: fmt.Sprintf("unknown approval mode %q", string(cfg.Approval)),
		}
	}
	for _, server := range cfg.MCPServers {
		if err := server.Validate(); err != nil {
			return Config{}, &ConfigurationError{Field: "mcp_servers", Message: err.Error()}
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NoOpLogger{}
	}

	return cfg, nil
}

// FileConfig is the YAML representation of the tunable configuration. The
// model backend itself cannot be loaded from a file; Model carries the
// identifier for the caller to construct the matching adapter.
type FileConfig struct {
	Model          string             `yaml:"model"`
	SystemPrompt   string             `yaml:"system_prompt"`
	Sandbox        string             `yaml:"sandbox"`
	Approval       string             `yaml:"approval"`
	MaxTurns       int                `yaml:"max_turns"`
	MaxRetries     int                `yaml:"max_retries"`
	ToolTimeout    time.Duration      `yaml:"tool_timeout"`
	WorkingDir     string             `yaml:"working_dir"`
	Env            map[string]string  `yaml:"env"`
	MCPServers     []mcp.ServerConfig `yaml:"mcp_servers"`
	EnablePlanTool *bool              `yaml:"enable_plan_tool"`
}

// LoadFileConfig reads and parses a YAML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// FromFile applies the file-loaded settings onto the builder. Unset file
// fields keep the builder's current values.
func (b *Builder) FromFile(cfg FileConfig) *Builder {
	if cfg.SystemPrompt != "" {
		b.SystemPrompt(cfg.SystemPrompt)
	}
	if cfg.Sandbox == "read-only" {
		b.Sandbox(tool.SandboxReadOnly)
	}
	if cfg.Approval != "" {
		b.Approval(ApprovalMode(cfg.Approval))
	}
	if cfg.MaxTurns > 0 {
		b.MaxTurns(cfg.MaxTurns)
	}
	if cfg.MaxRetries > 0 {
		b.MaxRetries(cfg.MaxRetries)
	}
	if cfg.ToolTimeout > 0 {
		b.ToolTimeout(cfg.ToolTimeout)
	}
	if cfg.WorkingDir != "" {
		b.WorkingDir(cfg.WorkingDir)
	}
	if cfg.Env != nil {
		b.Env(cfg.Env)
	}
	if len(cfg.MCPServers) > 0 {
		b.MCPServers(cfg.MCPServers...)
	}
	if cfg.EnablePlanTool != nil {
		b.EnablePlanTool(*cfg.EnablePlanTool)
	}
	return b
}
