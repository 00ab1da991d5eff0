package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klpod221/kerminal-sub001/internal/utils"
)

const deviceFileName = "device.json"

type deviceFile struct {
	DeviceID string `json:"deviceId"`
}

// LoadOrCreateDeviceID returns the device id persisted in dataDir, creating
// one on first start. A configured id always wins and is not persisted.
func LoadOrCreateDeviceID(dataDir, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	path := filepath.Join(dataDir, deviceFileName)

	var f deviceFile
	err := utils.ReadJSONFile(path, &f)
	switch {
	case err == nil && f.DeviceID != "":
		return f.DeviceID, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read device id: %w", err)
	}

	f.DeviceID = utils.NewUUIDGenerator().Generate()
	if err := utils.WriteJSONFile(path, f); err != nil {
		return "", fmt.Errorf("save device id: %w", err)
	}
	return f.DeviceID, nil
}
