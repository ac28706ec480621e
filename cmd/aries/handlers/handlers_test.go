package handlers

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	hcloudgo "github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/aries/internal/config"
	"github.com/imamik/aries/internal/graph"
	"github.com/imamik/aries/internal/platform/hcloud"
	"github.com/imamik/aries/internal/provisioning/resources"
	"github.com/imamik/aries/internal/state"
	"github.com/imamik/aries/internal/util/keygen"
	"github.com/imamik/aries/internal/util/labels"
)

type fakeRunner struct {
	hosts    []string
	commands []string
}

func (r *fakeRunner) Execute(_ context.Context, command string) (string, error) {
	r.commands = append(r.commands, command)
	return "", nil
}

func (r *fakeRunner) WaitForSSH(context.Context) error { return nil }

// testEnv is an initialized stack directory with all external dependencies
// replaced by fakes. Tests using it must not run in parallel.
type testEnv struct {
	dir    string
	opts   *Options
	out    *bytes.Buffer
	errOut *bytes.Buffer
	infra  *hcloud.MockClient
	runner *fakeRunner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	origGetenv, origStdout, origStderr := getenv, stdout, stderr
	origIsTerminal, origInfra, origDialer := isTerminal, newInfraClient, newDialer
	origBackend, origTimeouts, origConfirm := newStateBackend, loadTimeouts, confirm
	origFileExists, origGenerate := fileExists, generateKeyPair
	t.Cleanup(func() {
		getenv, stdout, stderr = origGetenv, origStdout, origStderr
		isTerminal, newInfraClient, newDialer = origIsTerminal, origInfra, origDialer
		newStateBackend, loadTimeouts, confirm = origBackend, origTimeouts, origConfirm
		fileExists, generateKeyPair = origFileExists, origGenerate
	})

	kp, err := keygen.GenerateED25519KeyPair("test")
	require.NoError(t, err)
	env := map[string]string{
		config.EnvHCloudToken:       "token",
		config.DefaultPublicKeyEnv:  string(kp.PublicKey),
		config.DefaultPrivateKeyEnv: string(kp.PrivateKey),
	}

	e := &testEnv{
		dir:    t.TempDir(),
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
		runner: &fakeRunner{},
		infra: &hcloud.MockClient{
			CreateServerFunc: func(_ context.Context, opts hcloud.ServerCreateOpts) (*hcloudgo.Server, error) {
				s := &hcloudgo.Server{ID: 1, Name: opts.Name, Status: hcloudgo.ServerStatusRunning, Labels: opts.Labels}
				s.PublicNet.IPv4.IP = net.ParseIP("198.51.100.7")
				return s, nil
			},
		},
	}

	getenv = func(k string) string { return env[k] }
	stdout, stderr = e.out, e.errOut
	isTerminal = func() bool { return false }
	newInfraClient = func(string, *config.Timeouts) hcloud.InfrastructureManager { return e.infra }
	newDialer = func(config.Connection, *config.Timeouts) resources.Dialer {
		return func(host string, _ map[string]string) (resources.Runner, error) {
			e.runner.hosts = append(e.runner.hosts, host)
			return e.runner, nil
		}
	}
	loadTimeouts = config.TestTimeouts
	confirm = func(context.Context, string, string) (bool, error) {
		return false, errors.New("unexpected prompt")
	}

	require.NoError(t, Init(e.dir, false, ""))
	e.out.Reset()
	e.opts = &Options{ConfigPath: filepath.Join(e.dir, config.DefaultConfigFilename)}
	return e
}

func (e *testEnv) loadState(t *testing.T) *state.State {
	t.Helper()
	st, err := state.NewLocalBackend(filepath.Join(e.dir, ".aries", "aries.state.yaml"), "aries").Load(context.Background())
	require.NoError(t, err)
	return st
}

func TestInit(t *testing.T) {
	e := newTestEnv(t)

	cfg, err := config.Load(e.opts.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultStackName, cfg.Name)
	assert.FileExists(t, filepath.Join(e.dir, "cloud-init.yaml"))

	err = Init(e.dir, false, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	require.NoError(t, Init(e.dir, true, ""))
	assert.Contains(t, e.out.String(), "export ARIES_PUB=")
}

func TestInit_GenerateKey(t *testing.T) {
	e := newTestEnv(t)

	for _, keyType := range []string{KeyTypeED25519, KeyTypeRSA} {
		t.Run(keyType, func(t *testing.T) {
			dir := filepath.Join(e.dir, keyType)
			require.NoError(t, Init(dir, false, keyType))

			pub, err := os.ReadFile(filepath.Join(dir, keyFileName(keyType)+".pub"))
			require.NoError(t, err)
			_, err = keygen.Fingerprint(pub)
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(string(pub), " aries\n"), "public key carries the stack name as comment")

			info, err := os.Stat(filepath.Join(dir, keyFileName(keyType)))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
			assert.Contains(t, e.out.String(), filepath.Join(dir, keyFileName(keyType)+".pub"))
		})
	}

	err := Init(filepath.Join(e.dir, "dsa"), false, "dsa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key type")
}

func TestInit_KeyGenerationFails(t *testing.T) {
	e := newTestEnv(t)
	generateKeyPair = func(string, string) (*keygen.KeyPair, error) { return nil, errors.New("no entropy") }

	err := Init(filepath.Join(e.dir, "broken"), false, KeyTypeED25519)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entropy")
}

func TestPreview(t *testing.T) {
	e := newTestEnv(t)

	require.NoError(t, Preview(context.Background(), e.opts))

	out := e.out.String()
	assert.Contains(t, out, "+ server/test-server (create)")
	assert.Contains(t, out, "Plan: 6 to create, 0 to update, 0 to replace, 0 to delete, 0 unchanged.")
	assert.Empty(t, e.loadState(t).Resources, "preview must not change state")
}

func TestPreview_MissingPublicKey(t *testing.T) {
	e := newTestEnv(t)
	getenv = func(string) string { return "" }

	err := Preview(context.Background(), e.opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.DefaultPublicKeyEnv)
}

func TestUp(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, Up(ctx, e.opts, true))
	assert.Contains(t, e.out.String(), "Applied: 6 created, 0 updated, 0 replaced, 0 deleted.")
	assert.Contains(t, e.out.String(), "server_ipv4 = 198.51.100.7")

	st := e.loadState(t)
	assert.Len(t, st.Resources, 6)
	assert.Equal(t, "198.51.100.7", st.Outputs[resources.OutputServerIPv4])
	assert.Empty(t, e.runner.commands, "default commands only have delete hooks")

	e.out.Reset()
	require.NoError(t, Up(ctx, e.opts, false), "no prompt without changes")
	assert.Contains(t, e.out.String(), "No changes.")
	assert.Equal(t, st.Serial, e.loadState(t).Serial)
}

func TestUp_Confirmation(t *testing.T) {
	tests := []struct {
		name     string
		terminal bool
		answer   bool
		wantErr  error
		wantOut  string
		created  int
	}{
		{name: "non-interactive needs --yes", wantErr: errNeedsApproval},
		{name: "declined", terminal: true, answer: false, wantOut: "Aborted."},
		{name: "accepted", terminal: true, answer: true, wantOut: "Applied: 6 created", created: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			isTerminal = func() bool { return tt.terminal }
			confirm = func(context.Context, string, string) (bool, error) { return tt.answer, nil }

			err := Up(context.Background(), e.opts, false)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, e.out.String(), tt.wantOut)
			assert.Len(t, e.loadState(t).Resources, tt.created)
		})
	}
}

func TestUp_FailureKeepsProgress(t *testing.T) {
	e := newTestEnv(t)
	e.infra.CreateVolumeFunc = func(context.Context, hcloud.VolumeCreateOpts) (*hcloudgo.Volume, error) {
		return nil, errors.New("volume limit reached")
	}

	err := Up(context.Background(), e.opts, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume limit reached")

	st := e.loadState(t)
	assert.Len(t, st.Resources, 3, "key, primary IP and server were created")
	assert.NoFileExists(t, filepath.Join(e.dir, ".aries", "aries.state.yaml.lock"))
}

func TestUp_VolumeShrinkRefusedBeforeChanges(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, Up(ctx, e.opts, true))
	before := e.loadState(t)

	cfg, err := config.Load(e.opts.ConfigPath)
	require.NoError(t, err)
	cfg.Server.ServerType = "cx43"
	cfg.Volume.Size = 20
	require.NoError(t, config.Save(cfg, e.opts.ConfigPath))

	serverDeletes := 0
	e.infra.DeleteServerFunc = func(context.Context, string) error {
		serverDeletes++
		return nil
	}

	err = Up(ctx, e.opts, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot shrink")
	assert.Zero(t, serverDeletes)
	assert.Empty(t, e.runner.commands, "no delete hook may run")
	assert.Equal(t, before.Serial, e.loadState(t).Serial)
}

func TestDestroy(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, Up(ctx, e.opts, true))
	e.out.Reset()

	var deleted []string
	e.infra.DeleteServerFunc = func(_ context.Context, name string) error {
		deleted = append(deleted, "server/"+name)
		return nil
	}
	e.infra.DeleteVolumeFunc = func(_ context.Context, name string) error {
		deleted = append(deleted, "volume/"+name)
		return nil
	}

	require.NoError(t, Destroy(ctx, e.opts, true, false, false))

	assert.Equal(t, []string{"systemctl stop k3s", "umount /mnt/HC_Volume_1 || true"}, e.runner.commands)
	assert.Equal(t, []string{"198.51.100.7", "198.51.100.7"}, e.runner.hosts)
	assert.Equal(t, []string{"volume/data-volume", "server/test-server"}, deleted)
	assert.Contains(t, e.out.String(), "Destroyed 6 resources of stack aries.")
	assert.True(t, e.loadState(t).Empty())

	e.out.Reset()
	require.NoError(t, Destroy(ctx, e.opts, true, false, false))
	assert.Contains(t, e.out.String(), "Nothing to destroy")
}

func TestDestroy_PurgeState(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, Up(ctx, e.opts, true))
	statePath := filepath.Join(e.dir, ".aries", "aries.state.yaml")
	require.FileExists(t, statePath)
	e.out.Reset()

	require.NoError(t, Destroy(ctx, e.opts, true, false, true))
	assert.Contains(t, e.out.String(), "Destroyed 6 resources of stack aries.")
	assert.Contains(t, e.out.String(), "Removed the state of stack aries.")
	assert.NoFileExists(t, statePath)
	assert.NoFileExists(t, statePath+".backup")
	assert.NoFileExists(t, statePath+".lock")

	e.out.Reset()
	require.NoError(t, Destroy(ctx, e.opts, true, false, true), "purging a missing state is fine")
	assert.Contains(t, e.out.String(), "Nothing to destroy")
}

func TestDestroy_Orphans(t *testing.T) {
	e := newTestEnv(t)

	var selector map[string]string
	e.infra.CleanupByLabelFunc = func(_ context.Context, s map[string]string) error {
		selector = s
		return nil
	}

	require.NoError(t, Destroy(context.Background(), e.opts, true, true, false))
	assert.Equal(t, map[string]string{
		labels.KeyStack:     "aries",
		labels.KeyManagedBy: labels.ManagedByAries,
	}, selector)
}

func TestDestroy_HookFailureStops(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, Up(ctx, e.opts, true))

	newDialer = func(config.Connection, *config.Timeouts) resources.Dialer {
		return func(string, map[string]string) (resources.Runner, error) {
			return nil, errors.New("connection refused")
		}
	}

	err := Destroy(ctx, e.opts, true, false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Len(t, e.loadState(t).Resources, 6)
}

func TestRefresh(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, Up(ctx, e.opts, true))
	e.out.Reset()

	// The mock finds nothing, so every provider resource is gone.
	require.NoError(t, Refresh(ctx, e.opts))
	assert.Contains(t, e.out.String(), "server/test-server no longer exists")

	st := e.loadState(t)
	assert.Nil(t, st.Get(graph.ID{Kind: resources.KindServer, Name: "test-server"}))
	assert.NotNil(t, st.Get(graph.ID{Kind: resources.KindCommand, Name: "unmount-data"}), "commands have no remote counterpart")
}

func TestOutput(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, Output(ctx, e.opts, "", false))
	assert.Contains(t, e.out.String(), "has no outputs")

	require.NoError(t, Up(ctx, e.opts, true))

	tests := []struct {
		name    string
		output  string
		asJSON  bool
		want    string
		wantErr string
	}{
		{name: "single value", output: "server_ipv4", want: "198.51.100.7\n"},
		{name: "single value json", output: "server_id", asJSON: true, want: "\"1\"\n"},
		{name: "unknown", output: "nope", wantErr: `output "nope" not found`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.out.Reset()
			err := Output(ctx, e.opts, tt.output, tt.asJSON)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.out.String())
		})
	}

	e.out.Reset()
	require.NoError(t, Output(ctx, e.opts, "", true))
	assert.Contains(t, e.out.String(), `"server_ipv4": "198.51.100.7"`)
}

func TestGraph(t *testing.T) {
	e := newTestEnv(t)

	require.NoError(t, Graph(e.opts, GraphFormatMermaid))
	assert.Contains(t, e.out.String(), "graph TD")

	e.out.Reset()
	require.NoError(t, Graph(e.opts, GraphFormatDOT))
	assert.Contains(t, e.out.String(), "digraph aries {")
	assert.Contains(t, e.out.String(), `test-server\n(server)`)

	e.out.Reset()
	require.NoError(t, Graph(e.opts, GraphFormatText))
	assert.Contains(t, e.out.String(), "volume/data-volume\n  depends on:  server/test-server\n  required by: command/unmount-data\n")

	require.Error(t, Graph(e.opts, "png"))
}

func TestMetricsFile(t *testing.T) {
	e := newTestEnv(t)
	e.opts.MetricsFile = filepath.Join(e.dir, "aries.prom")

	require.NoError(t, Up(context.Background(), e.opts, true))

	data, err := os.ReadFile(e.opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `aries_engine_runs_total{operation="apply",result="success",stack="aries"} 1`)
	assert.Contains(t, string(data), `aries_engine_resource_operations_total{action="create",kind="server",result="success"} 1`)
}

func TestJSONLogFormat(t *testing.T) {
	e := newTestEnv(t)
	e.opts.LogFormat = LogFormatJSON

	require.NoError(t, Up(context.Background(), e.opts, true))
	assert.Contains(t, e.errOut.String(), `"stack":"aries"`)
	assert.Contains(t, e.errOut.String(), `"type":"resource.created"`)
}

func TestNewObserver_UnknownFormat(t *testing.T) {
	_, err := newObserver("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log format")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(&Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestStateBackend(t *testing.T) {
	cfg := config.Default()
	b, err := stateBackend(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &state.LocalBackend{}, b)

	cfg.State.Backend = config.BackendS3
	cfg.State.S3 = config.S3State{Bucket: "aries-state", Key: "aries/state.yaml", AccessKey: "a", SecretKey: "s"}
	b, err = stateBackend(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "s3://aries-state/aries/state.yaml", b.String())
}
