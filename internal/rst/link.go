package rst

import (
	"io"
	"os"
	"path/filepath"

	rerrors "git.home.luguber.info/inful/rstprep/internal/errors"
)

// MaterializeLink replaces the symlink at path with a regular file holding
// the content of the file it resolves to. It reports whether a copy was
// made. Non-link paths are left alone; a path that does not exist is an
// error.
func MaterializeLink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, rerrors.IncludeMissing(path, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return false, nil
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false, rerrors.IncludeMissing(path, err)
	}
	if err := os.Remove(path); err != nil {
		return false, rerrors.Wrap(err, rerrors.CategoryFileSystem, rerrors.SeverityFatal, "remove symlink").
			WithContext("path", path)
	}
	if err := copyFile(target, path); err != nil {
		return false, rerrors.Wrap(err, rerrors.CategoryFileSystem, rerrors.SeverityFatal, "copy symlink target").
			WithContext("path", path).
			WithContext("target", target)
	}
	return true, nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return err
	}
	return dstFile.Close()
}
