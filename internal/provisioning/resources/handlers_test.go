package resources

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/aries/internal/graph"
	hcloud_internal "github.com/imamik/aries/internal/platform/hcloud"
	"github.com/imamik/aries/internal/provisioning"
	"github.com/imamik/aries/internal/state"
)

const stackLabels = "aries.io/managed-by=aries,aries.io/stack=aries"

func serverDep(id, ipv4 string) map[string]*state.Resource {
	return map[string]*state.Resource{
		"server/test-server": {
			Kind:    KindServer,
			Name:    "test-server",
			Outputs: map[string]string{outID: id, outIPv4: ipv4},
		},
	}
}

func TestSSHKeyHandler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	req := &provisioning.Request{
		ID:         graph.ID{Kind: KindSSHKey, Name: "ARIES"},
		Properties: map[string]string{propLabels: stackLabels},
		Payload:    map[string]string{payloadPublicKey: "ssh-ed25519 AAAA"},
	}

	t.Run("create", func(t *testing.T) {
		t.Parallel()
		var gotLabels map[string]string
		h := &SSHKeyHandler{infra: &hcloud_internal.MockClient{
			EnsureSSHKeyFunc: func(_ context.Context, name, publicKey string, l map[string]string) (*hcloud.SSHKey, error) {
				assert.Equal(t, "ARIES", name)
				assert.Equal(t, "ssh-ed25519 AAAA", publicKey)
				gotLabels = l
				return &hcloud.SSHKey{ID: 5, Name: name, Fingerprint: "aa:bb"}, nil
			},
		}}

		out, err := h.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{outID: "5", outFingerprint: "aa:bb"}, out)
		assert.Equal(t, "aries", gotLabels["aries.io/stack"])
	})

	t.Run("create without key", func(t *testing.T) {
		t.Parallel()
		h := &SSHKeyHandler{infra: &hcloud_internal.MockClient{}}
		_, err := h.Create(ctx, &provisioning.Request{ID: req.ID})
		require.Error(t, err)
	})

	t.Run("update missing key", func(t *testing.T) {
		t.Parallel()
		h := &SSHKeyHandler{infra: &hcloud_internal.MockClient{}}
		_, err := h.Update(ctx, req)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "aries refresh")
	})

	t.Run("read", func(t *testing.T) {
		t.Parallel()
		h := &SSHKeyHandler{infra: &hcloud_internal.MockClient{}}
		_, exists, err := h.Read(ctx, req)
		require.NoError(t, err)
		assert.False(t, exists)

		h.infra = &hcloud_internal.MockClient{
			GetSSHKeyFunc: func(context.Context, string) (*hcloud.SSHKey, error) {
				return &hcloud.SSHKey{ID: 9, Fingerprint: "cc"}, nil
			},
		}
		out, exists, err := h.Read(ctx, req)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, "9", out[outID])
	})
}

func TestPrimaryIPHandler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	req := &provisioning.Request{
		ID: graph.ID{Kind: KindPrimaryIP, Name: "test-server-ipv4"},
		Properties: map[string]string{
			propIPType:   "ipv4",
			propLocation: "fsn1",
			propLabels:   stackLabels,
		},
	}

	var gotType hcloud.PrimaryIPType
	var gotLocation string
	h := &PrimaryIPHandler{infra: &hcloud_internal.MockClient{
		EnsurePrimaryIPFunc: func(_ context.Context, name, location string, ipType hcloud.PrimaryIPType, _ map[string]string) (*hcloud.PrimaryIP, error) {
			gotType, gotLocation = ipType, location
			return &hcloud.PrimaryIP{ID: 3, Name: name, IP: net.ParseIP("198.51.100.7"), AssigneeID: 42}, nil
		},
	}}

	out, err := h.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, hcloud.PrimaryIPTypeIPv4, gotType)
	assert.Equal(t, "fsn1", gotLocation)
	assert.Equal(t, map[string]string{outID: "3", outIP: "198.51.100.7", outAssigneeID: "42"}, out)
	assert.Equal(t, []string{propIPType, propLocation}, h.ForceNew())
}

func TestPrimaryIPHandler_CreateExisting(t *testing.T) {
	t.Parallel()
	req := &provisioning.Request{
		ID: graph.ID{Kind: KindPrimaryIP, Name: "test-server-ipv4"},
		Properties: map[string]string{
			propIPType:   "ipv4",
			propLocation: "fsn1",
			propLabels:   stackLabels,
		},
	}

	tests := []struct {
		name    string
		labels  map[string]string
		wantErr bool
	}{
		{name: "own ip is adopted", labels: map[string]string{"aries.io/stack": "aries"}},
		{name: "foreign ip is rejected", labels: map[string]string{"aries.io/stack": "other"}, wantErr: true},
		{name: "unlabelled ip is rejected", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ensured := false
			h := &PrimaryIPHandler{infra: &hcloud_internal.MockClient{
				GetPrimaryIPFunc: func(_ context.Context, name string) (*hcloud.PrimaryIP, error) {
					return &hcloud.PrimaryIP{ID: 3, Name: name, IP: net.ParseIP("198.51.100.7"), Labels: tt.labels}, nil
				},
				EnsurePrimaryIPFunc: func(_ context.Context, name, _ string, _ hcloud.PrimaryIPType, _ map[string]string) (*hcloud.PrimaryIP, error) {
					ensured = true
					return &hcloud.PrimaryIP{ID: 3, Name: name, IP: net.ParseIP("198.51.100.7")}, nil
				},
			}}

			out, err := h.Create(context.Background(), req)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "not managed by this stack")
				assert.False(t, ensured)
				return
			}
			require.NoError(t, err)
			assert.True(t, ensured)
			assert.Equal(t, "3", out[outID])
		})
	}
}

func TestServerHandler_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	req := &provisioning.Request{
		ID: graph.ID{Kind: KindServer, Name: "test-server"},
		Properties: map[string]string{
			propServerType: "cx33",
			propImage:      "ubuntu-24.04",
			propLocation:   "fsn1",
			propIPv4:       "true",
			propIPv6:       "false",
			propSSHKeys:    "ARIES",
			propPrimaryIP:  "test-server-ipv4",
			propLabels:     stackLabels,
		},
		Payload: map[string]string{payloadUserData: testUserData},
	}

	var got hcloud_internal.ServerCreateOpts
	h := &ServerHandler{infra: &hcloud_internal.MockClient{
		CreateServerFunc: func(_ context.Context, opts hcloud_internal.ServerCreateOpts) (*hcloud.Server, error) {
			got = opts
			s := &hcloud.Server{ID: 42, Name: opts.Name, Status: hcloud.ServerStatusRunning}
			s.PublicNet.IPv4.IP = net.ParseIP("198.51.100.7")
			return s, nil
		},
	}}

	out, err := h.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, hcloud_internal.ServerCreateOpts{
		Name:        "test-server",
		Image:       "ubuntu-24.04",
		ServerType:  "cx33",
		Location:    "fsn1",
		SSHKeys:     []string{"ARIES"},
		Labels:      map[string]string{"aries.io/managed-by": "aries", "aries.io/stack": "aries"},
		UserData:    testUserData,
		EnableIPv4:  true,
		PrimaryIPv4: "test-server-ipv4",
	}, got)
	assert.Equal(t, map[string]string{outID: "42", outIPv4: "198.51.100.7", outStatus: "running"}, out)
}

func TestServerHandler_CreateAdoptsOrRejectsExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	req := &provisioning.Request{
		ID:         graph.ID{Kind: KindServer, Name: "test-server"},
		Properties: map[string]string{propLabels: stackLabels},
	}

	tests := []struct {
		name    string
		labels  map[string]string
		wantErr bool
	}{
		{name: "same stack is adopted", labels: map[string]string{"aries.io/stack": "aries"}},
		{name: "foreign server is rejected", labels: map[string]string{"aries.io/stack": "other"}, wantErr: true},
		{name: "unlabelled server is rejected", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			created := false
			h := &ServerHandler{infra: &hcloud_internal.MockClient{
				GetServerFunc: func(_ context.Context, name string) (*hcloud.Server, error) {
					return &hcloud.Server{ID: 7, Name: name, Labels: tt.labels}, nil
				},
				CreateServerFunc: func(context.Context, hcloud_internal.ServerCreateOpts) (*hcloud.Server, error) {
					created = true
					return nil, errors.New("unexpected create")
				},
			}}

			out, err := h.Create(ctx, req)
			assert.False(t, created)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "not managed by this stack")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "7", out[outID])
		})
	}
}

func TestServerHandler_UpdateLabels(t *testing.T) {
	t.Parallel()
	var got map[string]string
	h := &ServerHandler{infra: &hcloud_internal.MockClient{
		GetServerFunc: func(_ context.Context, name string) (*hcloud.Server, error) {
			return &hcloud.Server{ID: 42, Name: name}, nil
		},
		UpdateServerLabelsFunc: func(_ context.Context, _ *hcloud.Server, l map[string]string) error {
			got = l
			return nil
		},
	}}

	_, err := h.Update(context.Background(), &provisioning.Request{
		ID:         graph.ID{Kind: KindServer, Name: "test-server"},
		Properties: map[string]string{propLabels: stackLabels + ",env=prod"},
	})
	require.NoError(t, err)
	assert.Equal(t, "prod", got["env"])
}

func TestVolumeHandler_Create(t *testing.T) {
	t.Parallel()
	var got hcloud_internal.VolumeCreateOpts
	h := &VolumeHandler{infra: &hcloud_internal.MockClient{
		CreateVolumeFunc: func(_ context.Context, opts hcloud_internal.VolumeCreateOpts) (*hcloud.Volume, error) {
			got = opts
			return &hcloud.Volume{ID: 9, Name: opts.Name, Size: opts.Size, LinuxDevice: "/dev/disk/by-id/scsi-0HC_Volume_9", Server: &hcloud.Server{ID: opts.ServerID}}, nil
		},
	}}

	out, err := h.Create(context.Background(), &provisioning.Request{
		ID: graph.ID{Kind: KindVolume, Name: "data-volume"},
		Properties: map[string]string{
			propSize:      "50",
			propFormat:    "ext4",
			propAutomount: "true",
			propLabels:    stackLabels,
		},
		Deps: serverDep("42", "198.51.100.7"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), got.ServerID)
	assert.Equal(t, 50, got.Size)
	assert.Equal(t, "ext4", got.Format)
	assert.True(t, got.Automount)
	assert.Equal(t, map[string]string{
		outID:          "9",
		outLinuxDevice: "/dev/disk/by-id/scsi-0HC_Volume_9",
		outMountPath:   "/mnt/HC_Volume_9",
		outServerID:    "42",
	}, out)
}

func TestVolumeHandler_CreateRequiresServer(t *testing.T) {
	t.Parallel()
	h := &VolumeHandler{infra: &hcloud_internal.MockClient{}}
	_, err := h.Create(context.Background(), &provisioning.Request{
		ID:         graph.ID{Kind: KindVolume, Name: "data-volume"},
		Properties: map[string]string{propSize: "50"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a server dependency")
}

func TestVolumeHandler_Update(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		size       string
		attachedTo int64
		labels     map[string]string
		want       []string
	}{
		{
			name:       "grow",
			size:       "100",
			attachedTo: 42,
			labels:     map[string]string{"aries.io/managed-by": "aries", "aries.io/stack": "aries"},
			want:       []string{"resize 100"},
		},
		{
			name:       "reattach after server replacement",
			size:       "50",
			attachedTo: 0,
			labels:     map[string]string{"aries.io/managed-by": "aries", "aries.io/stack": "aries"},
			want:       []string{"attach 42"},
		},
		{
			name:       "labels only",
			size:       "50",
			attachedTo: 42,
			want:       []string{"labels"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls []string
			h := &VolumeHandler{infra: &hcloud_internal.MockClient{
				GetVolumeFunc: func(_ context.Context, name string) (*hcloud.Volume, error) {
					v := &hcloud.Volume{ID: 9, Name: name, Size: 50, Labels: tt.labels}
					if tt.attachedTo != 0 {
						v.Server = &hcloud.Server{ID: tt.attachedTo}
					}
					return v, nil
				},
				ResizeVolumeFunc: func(_ context.Context, _ *hcloud.Volume, size int) error {
					calls = append(calls, "resize "+strconv.Itoa(size))
					return nil
				},
				AttachVolumeFunc: func(_ context.Context, _ *hcloud.Volume, serverID int64, automount bool) error {
					assert.True(t, automount)
					calls = append(calls, "attach "+strconv.FormatInt(serverID, 10))
					return nil
				},
				UpdateVolumeLabelsFunc: func(context.Context, *hcloud.Volume, map[string]string) error {
					calls = append(calls, "labels")
					return nil
				},
			}}

			out, err := h.Update(context.Background(), &provisioning.Request{
				ID: graph.ID{Kind: KindVolume, Name: "data-volume"},
				Properties: map[string]string{
					propSize:      tt.size,
					propAutomount: "true",
					propLabels:    stackLabels,
				},
				Deps: serverDep("42", "198.51.100.7"),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, calls)
			assert.Equal(t, "42", out[outServerID])
		})
	}
}

func TestVolumeHandler_ShrinkFails(t *testing.T) {
	t.Parallel()
	h := &VolumeHandler{infra: &hcloud_internal.MockClient{
		GetVolumeFunc: func(_ context.Context, name string) (*hcloud.Volume, error) {
			return &hcloud.Volume{ID: 9, Name: name, Size: 100, Server: &hcloud.Server{ID: 42}}, nil
		},
		ResizeVolumeFunc: func(context.Context, *hcloud.Volume, int) error {
			return errors.New("volume data-volume cannot shrink from 100 GB to 50 GB")
		},
	}}

	_, err := h.Update(context.Background(), &provisioning.Request{
		ID:         graph.ID{Kind: KindVolume, Name: "data-volume"},
		Properties: map[string]string{propSize: "50"},
		Deps:       serverDep("42", ""),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot shrink")
}

func TestVolumeHandler_ValidateChange(t *testing.T) {
	t.Parallel()
	h := &VolumeHandler{}
	id := graph.ID{Kind: KindVolume, Name: "data-volume"}
	var _ provisioning.ChangeValidator = h

	tests := []struct {
		name    string
		from    string
		to      string
		wantErr string
	}{
		{name: "grow", from: "50", to: "80"},
		{name: "same size", from: "50", to: "50"},
		{name: "shrink", from: "50", to: "20", wantErr: "volume data-volume cannot shrink from 50 GB to 20 GB"},
		{name: "invalid size", from: "50", to: "big", wantErr: "invalid volume size"},
		{name: "no size in state", from: "", to: "20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := h.ValidateChange(id, map[string]string{propSize: tt.from}, map[string]string{propSize: tt.to})
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestHandlers(t *testing.T) {
	t.Parallel()
	handlers := Handlers(&hcloud_internal.MockClient{}, nil)
	for _, kind := range []string{KindSSHKey, KindPrimaryIP, KindServer, KindVolume, KindCommand} {
		assert.Contains(t, handlers, kind)
	}
}
