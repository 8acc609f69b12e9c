package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"pkt.systems/osiris/internal/appconfig"
	"pkt.systems/osiris/sshserver"
	"pkt.systems/pslog"
)

func newBootstrapCmd() *cobra.Command {
	var outputDir string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Generate a default config and ssh host key",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			out := outputDir
			if out == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				out = filepath.Join(home, ".osiris")
			}
			cfgPath, err := appconfig.WriteDefault(filepath.Join(out, "config.yaml"), overwrite)
			if err != nil {
				return err
			}
			logger.Info("bootstrap wrote", "path", cfgPath, "name", "config.yaml")
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			signer, err := sshserver.EnsureHostKey(cfg.SSH.HostKeyPath)
			if err != nil {
				return err
			}
			logger.Info("bootstrap host key", "path", cfg.SSH.HostKeyPath, "fingerprint", ssh.FingerprintSHA256(signer.PublicKey()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite existing files")
	return cmd
}
