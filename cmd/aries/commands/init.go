package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/aries/cmd/aries/handlers"
)

// Init returns the command writing a starter configuration.
//
// Flags:
//
//	--dir, -d: Directory to write into (default ".")
//	--force: Overwrite existing files
//	--generate-key: Also write an SSH key pair
//	--key-type: Type of the generated key, ed25519 or rsa (default "ed25519")
func Init() *cobra.Command {
	var (
		dir         string
		force       bool
		generateKey bool
		keyType     string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter aries.yaml and cloud-init.yaml",
		Long: `Write a starter configuration.

aries.yaml describes one server with a primary IPv4, a 50 GB data volume
and the default shutdown commands. cloud-init.yaml is the user data
template rendered into the server at creation time.

Secrets are never stored in these files. The SSH keys and the API token
are read from the environment.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if !generateKey {
				keyType = ""
			}
			return handlers.Init(dir, force, keyType)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the files into")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&generateKey, "generate-key", false, "Generate an SSH key pair")
	cmd.Flags().StringVar(&keyType, "key-type", handlers.KeyTypeED25519, "Type of the generated key: ed25519 or rsa")

	return cmd
}
