package utils

import (
	"os"
)

// CreateFolder creates folderPath and any missing parents.
func CreateFolder(folderPath string) error {
	return os.MkdirAll(folderPath, 0o755)
}
