package watcher

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Filesystem magic numbers from statfs(2).
const (
	nfsSuperMagic  = 0x6969
	smbSuperMagic  = 0x517B
	cifsMagic      = 0xFF534D42
	smb2Magic      = 0xFE534D42
	fuseSuperMagic = 0x65735546
)

func detectFilesystemType(path string) FilesystemType {
	target := path
	var st unix.Statfs_t
	if err := unix.Statfs(target, &st); err != nil {
		target = filepath.Dir(path)
		if err := unix.Statfs(target, &st); err != nil {
			return FSTypeUnknown
		}
	}

	switch int64(st.Type) {
	case nfsSuperMagic:
		return FSTypeNFS
	case smbSuperMagic, cifsMagic, smb2Magic:
		return FSTypeSMB
	case fuseSuperMagic:
		if fuseSubtype(target) == "fuse.sshfs" {
			return FSTypeSSHFS
		}
		return FSTypeFUSE
	}
	return FSTypeLocal
}

// fuseSubtype returns the mountinfo filesystem type ("fuse.sshfs") of the
// mount that holds path, or "".
func fuseSubtype(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	f, err := os.Open("/proc/self/mountinfo")
	if err != nil {
		return ""
	}
	defer f.Close()

	best, bestType := "", ""
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		// id parent major:minor root mountpoint options [optional...] - fstype source superopts
		fields := strings.Fields(sc.Text())
		sep := -1
		for i, fld := range fields {
			if fld == "-" {
				sep = i
				break
			}
		}
		if sep < 5 || sep+1 >= len(fields) {
			continue
		}
		mount := fields[4]
		if !strings.HasPrefix(abs, mount) || len(mount) <= len(best) {
			continue
		}
		if mount != "/" && abs != mount && !strings.HasPrefix(abs, mount+"/") {
			continue
		}
		best, bestType = mount, fields[sep+1]
	}
	return bestType
}
