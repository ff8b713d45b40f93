package store

import (
	"log/slog"
)

// Open returns the preferred SQLite backend, falling back to the flat-file
// backend when SQLite cannot be opened on this runtime. Callers get the same
// Backend contract either way.
func Open(baseDir string) (Backend, error) {
	sb, err := OpenSQLite(baseDir)
	if err == nil {
		return sb, nil
	}
	slog.Warn("sqlite store unavailable, falling back to file store", "err", err)

	fb, ferr := OpenFile(baseDir)
	if ferr != nil {
		// Neither backend works; report the fallback's error
		return nil, ferr
	}
	return fb, nil
}
