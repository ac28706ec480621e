package provisioning

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/imamik/aries/internal/graph"
	"github.com/imamik/aries/internal/state"
)

var (
	keyID     = graph.ID{Kind: "ssh_key", Name: "ARIES"}
	ipID      = graph.ID{Kind: "primary_ip", Name: "test-server-ipv4"}
	serverID  = graph.ID{Kind: "server", Name: "test-server"}
	volumeID  = graph.ID{Kind: "volume", Name: "data-volume"}
	unmountID = graph.ID{Kind: "command", Name: "unmount-data"}
)

// recorder collects handler calls across kinds as "action kind/name".
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(action string, id graph.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, action+" "+id.String())
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// fakeHandler keeps resources in memory and assigns sequential IDs.
type fakeHandler struct {
	kind     string
	forceNew []string
	rec      *recorder
	nextID   *int

	// fail maps "action name" to the error returned for it.
	fail map[string]error
	// gone lists names Read reports as missing.
	gone map[string]bool
	// status sets a "status" output returned by Read.
	status map[string]string
	// seenDeps records the dependency outputs passed to the last create.
	seenDeps map[string]map[string]string
	// validate, when set, refuses in-place updates at plan time.
	validate func(old, updated map[string]string) error
}

func newFakeHandlers(rec *recorder, forceNew map[string][]string) map[string]*fakeHandler {
	next := 0
	out := map[string]*fakeHandler{}
	for _, kind := range []string{"ssh_key", "primary_ip", "server", "volume", "command"} {
		out[kind] = &fakeHandler{
			kind:     kind,
			forceNew: forceNew[kind],
			rec:      rec,
			nextID:   &next,
			fail:     map[string]error{},
			gone:     map[string]bool{},
			status:   map[string]string{},
			seenDeps: map[string]map[string]string{},
		}
	}
	return out
}

func asHandlers(m map[string]*fakeHandler) map[string]Handler {
	out := make(map[string]Handler, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeHandler) ForceNew() []string { return f.forceNew }

func (f *fakeHandler) ValidateChange(_ graph.ID, old, updated map[string]string) error {
	if f.validate == nil {
		return nil
	}
	return f.validate(old, updated)
}

func (f *fakeHandler) Create(_ context.Context, req *Request) (map[string]string, error) {
	f.rec.add("create", req.ID)
	if err := f.fail["create "+req.ID.Name]; err != nil {
		return nil, err
	}
	f.seenDeps[req.ID.Name] = map[string]string{}
	for k, d := range req.Deps {
		f.seenDeps[req.ID.Name][k] = d.Output("id")
	}
	*f.nextID++
	return map[string]string{"id": fmt.Sprint(*f.nextID)}, nil
}

func (f *fakeHandler) Update(_ context.Context, req *Request) (map[string]string, error) {
	f.rec.add("update", req.ID)
	if err := f.fail["update "+req.ID.Name]; err != nil {
		return nil, err
	}
	return maps.Clone(req.Prior.Outputs), nil
}

func (f *fakeHandler) Delete(_ context.Context, req *Request) error {
	f.rec.add("delete", req.ID)
	return f.fail["delete "+req.ID.Name]
}

func (f *fakeHandler) Read(_ context.Context, req *Request) (map[string]string, bool, error) {
	f.rec.add("read", req.ID)
	if err := f.fail["read "+req.ID.Name]; err != nil {
		return nil, false, err
	}
	if f.gone[req.ID.Name] {
		return nil, false, nil
	}
	out := maps.Clone(req.Prior.Outputs)
	if v, ok := f.status[req.ID.Name]; ok {
		out["status"] = v
	}
	return out, true, nil
}

// stackDesired mirrors the default stack layout.
func stackDesired() []Desired {
	return []Desired{
		{ID: keyID, Properties: map[string]string{"fingerprint": "aa:bb"}},
		{ID: ipID, Properties: map[string]string{"location": "fsn1"}},
		{
			ID:          serverID,
			Properties:  map[string]string{"server_type": "cx33", "labels": "a=b"},
			Payload:     map[string]string{"user_data": "#cloud-config\n"},
			DependsOn:   []graph.ID{keyID, ipID},
			ReplaceWith: []graph.ID{keyID, ipID},
		},
		{
			ID:         volumeID,
			Properties: map[string]string{"size": "50", "format": "ext4"},
			DependsOn:  []graph.ID{serverID},
			UpdateWith: []graph.ID{serverID},
		},
		{
			ID:          unmountID,
			Properties:  map[string]string{"delete": "umount /mnt/data"},
			DependsOn:   []graph.ID{serverID, volumeID},
			ReplaceWith: []graph.ID{serverID},
		},
	}
}

var stackForceNew = map[string][]string{
	"ssh_key":    {"fingerprint"},
	"primary_ip": {"location"},
	"server":     {"server_type"},
	"volume":     {"format"},
	"command":    {"triggers"},
}

// withProperty returns a copy of desired with one property changed.
func withProperty(desired []Desired, id graph.ID, key, value string) []Desired {
	out := make([]Desired, len(desired))
	copy(out, desired)
	for i := range out {
		if out[i].ID == id {
			out[i].Properties = maps.Clone(out[i].Properties)
			out[i].Properties[key] = value
		}
	}
	return out
}

// stateFor builds a state holding every desired resource as if applied.
func stateFor(desired []Desired) *state.State {
	st := state.New("aries")
	for i, d := range desired {
		st.Put(state.Resource{
			Kind:       d.ID.Kind,
			Name:       d.ID.Name,
			Properties: maps.Clone(d.Properties),
			Outputs:    map[string]string{"id": fmt.Sprint(100 + i)},
			DependsOn:  dependsOn(&desired[i]),
		})
	}
	return st
}
