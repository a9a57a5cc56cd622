package kadmin

import (
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"
)

// setFileAccess applies ownership and access bits to a keytab file. A missing
// file or an unspecified owner is a no-op. The owner and an explicitly
// specified group must exist on the host, only an unspecified group falls
// back to the effective gid of the process.
func setFileAccess(path, owner, ownerAccess, group, groupAccess string) error {
	if path == "" || owner == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}

	uid, err := lookupUID(owner)
	if err != nil {
		return err
	}

	gid := os.Getegid()
	if group != "" {
		gid, err = lookupGID(group)
		if err != nil {
			return err
		}
	}

	if err := os.Chmod(path, accessMode(ownerAccess, groupAccess)); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Chown(path, uid, gid); err != nil {
		return fmt.Errorf("failed to chown %s: %w", path, err)
	}

	return nil
}

func lookupUID(owner string) (int, error) {
	u, err := user.Lookup(owner)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve owner '%v': %w", owner, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve owner '%v': %w", owner, err)
	}
	return uid, nil
}

func lookupGID(group string) (int, error) {
	g, err := user.LookupGroup(group)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve group '%v': %w", group, err)
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve group '%v': %w", group, err)
	}
	return gid, nil
}

// accessMode maps the access words onto permission bits: owner "r" means
// read-only, anything else read+write; group "rw" and "r" add the matching
// group bits, everything else leaves the group without access.
func accessMode(ownerAccess, groupAccess string) fs.FileMode {
	var mode fs.FileMode

	if ownerAccess == "r" {
		mode |= 0400
	} else {
		mode |= 0600
	}

	switch groupAccess {
	case "rw":
		mode |= 0060
	case "r":
		mode |= 0040
	}

	return mode
}
