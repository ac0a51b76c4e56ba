package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/boveda/internal/assets"
	"github.com/boveda/internal/vault"
)

// encryptable lists the asset types the vault manages.
var encryptable = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".mp4":  true,
	".mov":  true,
	".json": true,
	".txt":  true,
}

// VaultCommand returns the vault command
func VaultCommand() *cli.Command {
	return &cli.Command{
		Name:  "vault",
		Usage: "Manage the encrypted asset vault",
		Subcommands: []*cli.Command{
			{
				Name:   "genkey",
				Usage:  "Generate a new vault key",
				Action: runVaultGenkey,
			},
			{
				Name:  "encrypt",
				Usage: "Encrypt vault assets, writing .enc siblings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Asset directory (defaults to the configured one)",
					},
					&cli.BoolFlag{
						Name:  "rm",
						Usage: "Remove plaintext originals after encrypting",
					},
				},
				Action: runVaultEncrypt,
			},
			{
				Name:  "decrypt",
				Usage: "Restore plaintext assets from their .enc siblings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Asset directory (defaults to the configured one)",
					},
				},
				Action: runVaultDecrypt,
			},
			{
				Name:  "verify",
				Usage: "Check that every .enc file decrypts with the configured key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Asset directory (defaults to the configured one)",
					},
				},
				Action: runVaultVerify,
			},
		},
	}
}

func runVaultGenkey(c *cli.Context) error {
	key, err := vault.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Println(vault.EncodeKey(key))
	fmt.Fprintln(c.App.ErrWriter, "Store this as VAULT_KEY. It is not written anywhere.")
	return nil
}

func vaultDirAndKey(c *cli.Context) (string, vault.Key, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return "", vault.Key{}, err
	}

	dir := c.String("dir")
	if dir == "" {
		dir = cfg.Assets.Dir
	}

	key, ok, err := resolveVaultKey(cfg)
	if err != nil {
		return "", vault.Key{}, err
	}
	if !ok {
		return "", vault.Key{}, errors.New("no vault key configured: set VAULT_KEY or vault.key")
	}
	return dir, key, nil
}

// plaintextAssets walks dir and returns the files the vault should hold:
// known asset types, excluding .enc files and anything marked "example".
func plaintextAssets(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !encryptable[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		if strings.Contains(strings.ToLower(name), "example") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

func encryptedAssets(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), assets.EncSuffix) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func runVaultEncrypt(c *cli.Context) error {
	dir, key, err := vaultDirAndKey(c)
	if err != nil {
		return err
	}

	paths, err := plaintextAssets(dir)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d files to encrypt.\n", len(paths))

	var failed int
	for _, path := range paths {
		if err := encryptFile(path, key, c.Bool("rm")); err != nil {
			failed++
			log.Error().Err(err).Str("path", path).Msg("encrypt failed")
			continue
		}
		fmt.Printf("Encrypted: %s -> %s%s\n", path, path, assets.EncSuffix)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to encrypt", failed, len(paths))
	}
	return nil
}

func encryptFile(path string, key vault.Key, removeOriginal bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	blob, err := vault.Encrypt(data, key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path+assets.EncSuffix, blob, 0o600); err != nil {
		return err
	}
	if removeOriginal {
		return os.Remove(path)
	}
	return nil
}

func runVaultDecrypt(c *cli.Context) error {
	dir, key, err := vaultDirAndKey(c)
	if err != nil {
		return err
	}

	paths, err := encryptedAssets(dir)
	if err != nil {
		return err
	}

	for _, path := range paths {
		blob, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		data, err := vault.Decrypt(blob, key)
		if err != nil {
			return fmt.Errorf("decrypting %s: %w", path, err)
		}
		target := strings.TrimSuffix(path, assets.EncSuffix)
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return err
		}
		fmt.Printf("Decrypted: %s -> %s\n", path, target)
	}
	return nil
}

func runVaultVerify(c *cli.Context) error {
	dir, key, err := vaultDirAndKey(c)
	if err != nil {
		return err
	}

	paths, err := encryptedAssets(dir)
	if err != nil {
		return err
	}

	var failed int
	for _, path := range paths {
		blob, err := os.ReadFile(path)
		if err == nil {
			_, err = vault.Decrypt(blob, key)
		}
		if err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Printf("ok   %s\n", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d encrypted files failed verification", failed, len(paths))
	}
	fmt.Printf("All %d encrypted files verified.\n", len(paths))
	return nil
}
