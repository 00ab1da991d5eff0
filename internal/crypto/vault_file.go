package crypto

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/klpod221/kerminal-sub001/internal/utils"
)

// VaultFileName is the name of the key file inside the data directory.
const VaultFileName = "vault.json"

// VaultFile is the persisted half of the key hierarchy. Neither field is
// secret on its own; byte slices are stored as base64 by encoding/json.
type VaultFile struct {
	Salt       []byte    `json:"salt"`
	WrappedDEK []byte    `json:"wrappedDek"`
	CreatedAt  time.Time `json:"createdAt"`
}

func LoadVaultFile(path string) (VaultFile, error) {
	var file VaultFile
	if err := utils.ReadJSONFile(path, &file); err != nil {
		return VaultFile{}, err
	}
	if len(file.Salt) == 0 || len(file.WrappedDEK) == 0 {
		return VaultFile{}, fmt.Errorf("vault file %s is incomplete: %w", path, ErrMalformedCiphertext)
	}
	return file, nil
}

func SaveVaultFile(path string, file VaultFile) error {
	return utils.WriteJSONFile(path, file)
}

// OpenVault unlocks v with masterPassword using the key file at path. On
// first start (no file yet) a new key hierarchy is created and saved.
// created reports which of the two happened.
func OpenVault(v *Vault, path, masterPassword string) (created bool, err error) {
	file, err := LoadVaultFile(path)
	switch {
	case err == nil:
		return false, v.Unlock(masterPassword, file)
	case !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("load vault file: %w", err)
	}

	file, err = v.Initialize(masterPassword)
	if err != nil {
		return false, err
	}
	file.CreatedAt = time.Now().UTC()

	if err := SaveVaultFile(path, file); err != nil {
		v.Lock()
		return false, fmt.Errorf("save vault file: %w", err)
	}

	return true, nil
}
