package tarball

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
)

// Patch applies one patch file to the tree at dir, with patch -p1.
func Patch(ctx context.Context, dir, patchFile string) error {
	abs, err := filepath.Abs(patchFile)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, "patch", "-p1", "-i", abs)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("patch %s failed: %v: %s", filepath.Base(patchFile), err, stderr.String())
	}
	return nil
}
