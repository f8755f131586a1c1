// Package mcp bridges external Model Context Protocol servers into the tool
// registry. A Client connects to one server (subprocess or HTTP), discovers
// its tools and exposes each one behind the registry's Tool contract.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/tool"
)

// ServerConfig describes how to reach one MCP server. Exactly one of Command
// and URL must be set.
type ServerConfig struct {
	// Name identifies the server in logs and error messages.
	Name string `yaml:"name"`
	// Command launches the server as a subprocess speaking stdio.
	Command string `yaml:"command,omitempty"`
	// Args are passed to Command.
	Args []string `yaml:"args,omitempty"`
	// Env adds environment variables for the subprocess.
	Env map[string]string `yaml:"env,omitempty"`
	// URL connects to a server over streamable HTTP.
	URL string `yaml:"url,omitempty"`
}

// Validate checks the config names exactly one transport.
func (c ServerConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("mcp server name must not be empty")
	}
	if (c.Command == "") == (c.URL == "") {
		return fmt.Errorf("mcp server %q must set exactly one of command and url", c.Name)
	}
	return nil
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Logger receives connection and discovery telemetry.
	Logger logging.Logger
	// Implementation identifies this client to the server.
	Implementation *mcpsdk.Implementation
}

// Client manages the session with a single MCP server and the tools
// discovered from it.
type Client struct {
	name    string
	session *mcpsdk.ClientSession
	cmd     *exec.Cmd
	tools   []*Tool
	logger  logging.Logger
}

// Connect establishes the session, performs the handshake and discovers the
// server's tools, following list pagination to the end.
func Connect(ctx context.Context, cfg ServerConfig, optFns ...func(o *ClientOptions)) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := ClientOptions{
		Logger:         logging.NoOpLogger{},
		Implementation: &mcpsdk.Implementation{Name: "agentcore", Version: "v1.0.0"},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var (
		transport mcpsdk.Transport
		cmd       *exec.Cmd
	)
	if cfg.Command != "" {
		cmd = exec.Command(cfg.Command, cfg.Args...)
		cmd.Stderr = os.Stderr
		cmd.Env = os.Environ()
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		transport = mcpsdk.NewCommandTransport(cmd)
	} else {
		transport = mcpsdk.NewStreamableClientTransport(cfg.URL, nil)
	}

	session, err := mcpsdk.NewClient(opts.Implementation, nil).Connect(ctx, transport)
	if err != nil {
		if cmd != nil && cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil, fmt.Errorf("failed to connect to mcp server %q: %w", cfg.Name, err)
	}

	client := &Client{
		name:    cfg.Name,
		session: session,
		cmd:     cmd,
		logger:  opts.Logger,
	}

	if err := client.discover(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	opts.Logger.Info("mcp.connected", "server", cfg.Name, "tools", len(client.tools))

	return client, nil
}

func (c *Client) discover(ctx context.Context) error {
	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := c.session.ListTools(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list tools from mcp server %q: %w", c.name, err)
		}

		for _, t := range list.Tools {
			schema, err := schemaToMap(t.InputSchema)
			if err != nil {
				return fmt.Errorf("invalid input schema for mcp tool %q: %w", t.Name, err)
			}
			c.tools = append(c.tools, &Tool{
				client:      c,
				name:        t.Name,
				description: t.Description,
				parameters:  schema,
			})
		}

		if list.NextCursor == "" {
			return nil
		}
		params.Cursor = list.NextCursor
	}
}

// Tools returns the discovered tools in server order.
func (c *Client) Tools() []*Tool {
	return append([]*Tool(nil), c.tools...)
}

// RegisterAll adds every discovered tool to a registry.
func (c *Client) RegisterAll(registry *tool.Registry) error {
	for _, t := range c.tools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Close terminates the session and, for subprocess servers, the process.
func (c *Client) Close() error {
	var sessionErr error
	if c.session != nil {
		sessionErr = c.session.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		c.logger.Debug("mcp.terminate", "server", c.name)
		if err := c.cmd.Process.Kill(); err != nil && sessionErr == nil {
			sessionErr = err
		}
	}
	return sessionErr
}

// schemaToMap converts the wire schema into the plain map the registry
// validates against.
func schemaToMap(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Tool proxies a single remote MCP tool behind the registry contract.
type Tool struct {
	client      *Client
	name        string
	description string
	parameters  map[string]any
}

// Name returns the tool name as reported by the server.
func (t *Tool) Name() string { return t.name }

// Description returns the server-provided description.
func (t *Tool) Description() string { return t.description }

// Parameters returns the server-declared input schema.
func (t *Tool) Parameters() map[string]any { return t.parameters }

// Execute forwards the call to the server and concatenates the text content
// of the result. A server-side tool error is returned as a Go error so the
// registry reports it as a failed execution.
func (t *Tool) Execute(execCtx tool.ExecContext, args map[string]any) (string, error) {
	result, err := t.client.session.CallTool(execCtx.Ctx(), &mcpsdk.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("mcp tool %q call failed: %w", t.name, err)
	}

	var output string
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			output += text.Text
		}
	}

	if result.IsError {
		return "", fmt.Errorf("mcp tool %q reported an error: %s", t.name, output)
	}
	return output, nil
}
