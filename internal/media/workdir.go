package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// NewWorkDir creates a unique scratch directory under root. The returned
// cleanup removes it and everything inside.
func NewWorkDir(root string) (string, func(), error) {
	dir := filepath.Join(root, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("create work dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
