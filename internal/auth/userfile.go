package auth

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// userFile is the JSON array of users backing a Store.
type userFile struct {
	path string
}

// fileStamp identifies one version of the user file on disk.
type fileStamp struct {
	modTime int64
	size    int64
	inode   uint64
	dev     uint64
}

func stampOf(info fs.FileInfo) fileStamp {
	stamp := fileStamp{modTime: info.ModTime().UnixNano(), size: info.Size()}
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		stamp.inode = st.Ino
		stamp.dev = uint64(st.Dev)
	}
	return stamp
}

func (f userFile) exists() (bool, error) {
	_, err := os.Stat(f.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

func (f userFile) stat() (fileStamp, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return fileStamp{}, err
	}
	return stampOf(info), nil
}

func (f userFile) read() ([]User, fileStamp, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fileStamp{}, err
	}
	defer fh.Close()
	info, err := fh.Stat()
	if err != nil {
		return nil, fileStamp{}, err
	}
	var users []User
	if err := json.NewDecoder(fh).Decode(&users); err != nil {
		return nil, fileStamp{}, err
	}
	return users, stampOf(info), nil
}

// write replaces the file through a synced 0600 temp file in the same
// directory and returns the stamp of the new version.
func (f userFile) write(users []User) (fileStamp, error) {
	if users == nil {
		users = []User{}
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fileStamp{}, err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fileStamp{}, err
	}
	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fileStamp{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err := tmp.Chmod(0o600); err != nil {
		return fileStamp{}, err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		return fileStamp{}, err
	}
	if err := tmp.Sync(); err != nil {
		return fileStamp{}, err
	}
	if err := tmp.Close(); err != nil {
		return fileStamp{}, err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fileStamp{}, err
	}
	committed = true
	return f.stat()
}
