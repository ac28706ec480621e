package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/aries/internal/config"
	"github.com/imamik/aries/internal/platform/ssh"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/util/tmpl"
)

const (
	propCreate          = "create"
	propUpdate          = "update"
	propDelete          = "delete"
	propEnvironment     = "environment"
	propTriggers        = "triggers"
	propContinueOnError = "continue_on_error"

	outStdout = "stdout"

	// maxStoredOutput bounds the command output kept in state.
	maxStoredOutput = 4096
)

// Runner executes shell commands on the server.
type Runner interface {
	Execute(ctx context.Context, command string) (string, error)
	WaitForSSH(ctx context.Context) error
}

// Dialer returns a Runner for a host with env exported before every command.
type Dialer func(host string, env map[string]string) (Runner, error)

// NewSSHDialer returns a Dialer backed by the SSH client using the
// connection settings and SSH timeouts.
func NewSSHDialer(conn config.Connection, timeouts *config.Timeouts) Dialer {
	return func(host string, env map[string]string) (Runner, error) {
		if conn.PrivateKey == "" {
			return nil, fmt.Errorf("private key is not set, export %s", conn.PrivateKeyEnv)
		}
		return ssh.NewClient(&ssh.Config{
			Host:           host,
			Port:           conn.Port,
			User:           conn.User,
			PrivateKey:     []byte(conn.PrivateKey),
			DialTimeout:    timeouts.SSHConnect,
			RetryDelay:     timeouts.SSHRetryDelay,
			CommandTimeout: timeouts.SSHCommand,
			Env:            env,
			KnownHostsFile: conn.KnownHostsFile,
		})
	}
}

// CommandHandler runs remote lifecycle commands over SSH. A command runs
// "create" when created, "update" (falling back to "create") when its inputs
// change, and "delete" before it is removed.
type CommandHandler struct {
	dial Dialer
}

// ForceNew implements provisioning.Handler.
func (h *CommandHandler) ForceNew() []string {
	return []string{propTriggers}
}

// Create implements provisioning.Handler.
func (h *CommandHandler) Create(ctx context.Context, req *provisioning.Request) (map[string]string, error) {
	return h.run(ctx, req, req.Properties[propCreate], true)
}

// Update implements provisioning.Handler.
func (h *CommandHandler) Update(ctx context.Context, req *provisioning.Request) (map[string]string, error) {
	command := req.Properties[propUpdate]
	if command == "" {
		command = req.Properties[propCreate]
	}
	return h.run(ctx, req, command, false)
}

// Delete runs the delete hook. A failure is only logged when
// continue_on_error is set.
func (h *CommandHandler) Delete(ctx context.Context, req *provisioning.Request) error {
	if req.Dep(KindServer) == nil {
		// Nothing to run the hook on.
		if req.Log != nil {
			req.Log.Printf("[command] %s: server is gone, skipping delete hook", req.ID.Name)
		}
		return nil
	}

	_, err := h.run(ctx, req, req.Properties[propDelete], false)
	if err != nil && req.Properties[propContinueOnError] == "true" {
		if req.Log != nil {
			req.Log.Printf("[command] %s: ignoring failed delete hook: %v", req.ID.Name, err)
		}
		return nil
	}
	return err
}

// Read implements provisioning.Handler. Commands have no remote
// counterpart, they exist as long as they are in state.
func (h *CommandHandler) Read(_ context.Context, req *provisioning.Request) (map[string]string, bool, error) {
	if req.Prior == nil {
		return nil, false, nil
	}
	return req.Prior.Outputs, true, nil
}

func (h *CommandHandler) run(ctx context.Context, req *provisioning.Request, command string, waitReady bool) (map[string]string, error) {
	if strings.TrimSpace(command) == "" {
		return map[string]string{}, nil
	}

	vars, host, err := commandVars(req)
	if err != nil {
		return nil, err
	}
	rendered, err := tmpl.Render(command, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render command: %w", err)
	}
	env, err := DecodeEnvironment(req.Properties[propEnvironment])
	if err != nil {
		return nil, err
	}

	runner, err := h.dial(host, env)
	if err != nil {
		return nil, err
	}
	if waitReady {
		if err := runner.WaitForSSH(ctx); err != nil {
			return nil, fmt.Errorf("server %s is not reachable over SSH: %w", host, err)
		}
	}

	if req.Log != nil {
		req.Log.Printf("[command] %s: running on %s", req.ID.Name, host)
	}
	out, err := runner.Execute(ctx, rendered)
	if err != nil {
		return nil, err
	}
	return map[string]string{outStdout: truncate(out, maxStoredOutput)}, nil
}

// commandVars collects the template variables from the dependencies and
// returns the host to connect to.
func commandVars(req *provisioning.Request) (map[string]string, string, error) {
	server := req.Dep(KindServer)
	if server == nil {
		return nil, "", errors.New("command requires a server dependency")
	}
	host := server.Output(outIPv4)
	if host == "" {
		host = server.Output(outIPv6)
	}
	if host == "" {
		return nil, "", fmt.Errorf("server %s has no public address", server.Name)
	}

	vars := map[string]string{
		"server-ipv4": server.Output(outIPv4),
		"server-ipv6": server.Output(outIPv6),
		"server-id":   server.Output(outID),
	}
	if volume := req.Dep(KindVolume); volume != nil {
		vars["volume-id"] = volume.Output(outID)
		vars["volume-mount"] = volume.Output(outMountPath)
		vars["volume-device"] = volume.Output(outLinuxDevice)
	}
	return vars, host, nil
}

// EncodeEnvironment renders the environment as a stable property value.
func EncodeEnvironment(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}
	// json.Marshal sorts map keys. It cannot fail for a map[string]string:
	// invalid UTF-8 is replaced, not rejected.
	data, _ := json.Marshal(env)
	return string(data)
}

// DecodeEnvironment parses the output of EncodeEnvironment.
func DecodeEnvironment(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	var env map[string]string
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, fmt.Errorf("invalid command environment: %w", err)
	}
	return env, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
