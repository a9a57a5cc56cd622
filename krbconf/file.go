package krbconf

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// WriteFile materializes rendered krb5.conf content on disk: the parent
// directory is created 0755, the file written and chmodded 0644, ownership
// applied last. A specified owner or group must exist on the host, only
// unspecified names fall back to the process's effective uid and gid.
func WriteFile(path, content, owner, group string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(path, 0644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}

	uid := os.Geteuid()
	if owner != "" {
		u, err := user.Lookup(owner)
		if err != nil {
			return fmt.Errorf("failed to resolve owner '%v': %w", owner, err)
		}
		if uid, err = strconv.Atoi(u.Uid); err != nil {
			return fmt.Errorf("failed to resolve owner '%v': %w", owner, err)
		}
	}
	gid := os.Getegid()
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return fmt.Errorf("failed to resolve group '%v': %w", group, err)
		}
		if gid, err = strconv.Atoi(g.Gid); err != nil {
			return fmt.Errorf("failed to resolve group '%v': %w", group, err)
		}
	}
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("failed to chown %s: %w", path, err)
	}

	return nil
}
