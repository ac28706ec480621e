package config

// Config is the desired configuration of a single-server stack.
type Config struct {
	// Name is the stack name. It is used for state naming and resource labels.
	// Must be DNS-safe: lowercase alphanumeric and hyphens, must start with letter.
	Name string `yaml:"name"`

	// Location is the Hetzner location all resources are placed in.
	Location string `yaml:"location"`

	SSHKey     SSHKey     `yaml:"ssh_key"`
	Server     Server     `yaml:"server"`
	PrimaryIP  PrimaryIP  `yaml:"primary_ip"`
	Volume     Volume     `yaml:"volume"`
	Connection Connection `yaml:"connection"`
	Commands   []Command  `yaml:"commands"`
	State      State      `yaml:"state"`

	// Outputs restricts which stack outputs are exported. Empty means all.
	Outputs []string `yaml:"outputs,omitempty"`

	// HCloudToken is read from HCLOUD_TOKEN, never from the file.
	HCloudToken string `yaml:"-"`
}

// SSHKey is the key uploaded to Hetzner Cloud and injected into the server.
type SSHKey struct {
	Name string `yaml:"name"`
	// PublicKeyEnv names the environment variable holding the public key.
	PublicKeyEnv string `yaml:"public_key_env"`

	PublicKey string `yaml:"-"`
}

// Server describes the compute instance.
type Server struct {
	Name       string            `yaml:"name"`
	ServerType string            `yaml:"server_type"`
	Image      string            `yaml:"image"`
	IPv4       *bool             `yaml:"ipv4,omitempty"`
	IPv6       *bool             `yaml:"ipv6,omitempty"`
	UserData   UserData          `yaml:"user_data"`
	Labels     map[string]string `yaml:"labels,omitempty"`
}

// UserData points to the cloud-init template rendered at deploy time.
type UserData struct {
	// Template is the path to the template, relative to the config file.
	Template string            `yaml:"template"`
	Vars     map[string]string `yaml:"vars,omitempty"`
}

// PrimaryIP is the static IPv4 address assigned to the server.
type PrimaryIP struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Name    string `yaml:"name"`
}

// Volume is the block storage volume attached to the server.
type Volume struct {
	Name      string            `yaml:"name"`
	Size      int               `yaml:"size"`
	Format    string            `yaml:"format"`
	Automount *bool             `yaml:"automount,omitempty"`
	Labels    map[string]string `yaml:"labels,omitempty"`
}

// Connection holds the SSH parameters used by remote commands.
type Connection struct {
	User string `yaml:"user"`
	Port int    `yaml:"port"`
	// PrivateKeyEnv names the environment variable holding the private key.
	PrivateKeyEnv string `yaml:"private_key_env"`
	// KnownHostsFile enables host key verification when set.
	KnownHostsFile string `yaml:"known_hosts_file,omitempty"`

	PrivateKey string `yaml:"-"`
}

// Command is a remote lifecycle command executed over SSH on the server.
//
// Create runs when the command resource is created, Update when its inputs
// change (falling back to Create), and Delete when it is destroyed.
type Command struct {
	Name            string            `yaml:"name"`
	Create          string            `yaml:"create,omitempty"`
	Update          string            `yaml:"update,omitempty"`
	Delete          string            `yaml:"delete,omitempty"`
	Environment     map[string]string `yaml:"environment,omitempty"`
	Triggers        []string          `yaml:"triggers,omitempty"`
	DependsOn       []string          `yaml:"depends_on,omitempty"`
	ContinueOnError bool              `yaml:"continue_on_error,omitempty"`
}

// State selects where the stack state is persisted.
type State struct {
	// Backend is "local" or "s3".
	Backend string  `yaml:"backend"`
	Path    string  `yaml:"path,omitempty"`
	S3      S3State `yaml:"s3,omitempty"`
}

// S3State configures the S3 state backend (Hetzner Object Storage).
type S3State struct {
	Bucket   string `yaml:"bucket"`
	Key      string `yaml:"key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Region   string `yaml:"region,omitempty"`

	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// IPv4Enabled reports whether the server gets a public IPv4 address.
func (s Server) IPv4Enabled() bool { return s.IPv4 == nil || *s.IPv4 }

// IPv6Enabled reports whether the server gets a public IPv6 address.
func (s Server) IPv6Enabled() bool { return s.IPv6 != nil && *s.IPv6 }

// IsEnabled reports whether a primary IP is managed for the server.
func (p PrimaryIP) IsEnabled() bool { return p.Enabled == nil || *p.Enabled }

// AutomountEnabled reports whether the volume is mounted automatically.
func (v Volume) AutomountEnabled() bool { return v.Automount == nil || *v.Automount }

// NeedsSSH reports whether any command has to run on the server.
func (c *Config) NeedsSSH() bool {
	for _, cmd := range c.Commands {
		if cmd.Create != "" || cmd.Update != "" || cmd.Delete != "" {
			return true
		}
	}
	return false
}

// RunsOnDeploy reports whether any command has a create or update hook,
// which means up has to connect to the server.
func (c *Config) RunsOnDeploy() bool {
	for _, cmd := range c.Commands {
		if cmd.Create != "" || cmd.Update != "" {
			return true
		}
	}
	return false
}

// S3Endpoint returns the object storage endpoint for the state backend.
func (c *Config) S3Endpoint() string {
	if c.State.S3.Endpoint != "" {
		return c.State.S3.Endpoint
	}
	return "https://" + c.S3Region() + ".your-objectstorage.com"
}

// S3Region returns the object storage region, defaulting to the stack location.
func (c *Config) S3Region() string {
	if c.State.S3.Region != "" {
		return c.State.S3.Region
	}
	return c.Location
}
