package schemalift

import (
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// CreateScript scaffolds the next migration script in dir, naming it
// one past the highest integer identifier already present. Files whose
// names do not parse are ignored, as the engine itself ignores them.
// It returns the path of the created file.
func CreateScript(files afero.Fs, dir, suffix string) (string, error) {
	if suffix == "" {
		suffix = DefaultConfig.ScriptSuffix
	}
	entries, err := afero.ReadDir(files, dir)
	if err != nil {
		return "", errors.Wrapf(err, "scanning %s", dir)
	}
	max := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		v, err := scriptVersion(e.Name(), suffix)
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}

	path := filepath.Join(dir, strconv.Itoa(max+1)+suffix)
	content := []byte("-- Write your migration SQL here\n")
	if err := afero.WriteFile(files, path, content, 0o644); err != nil {
		return "", errors.Wrapf(err, "creating migration script %s", path)
	}
	return path, nil
}
