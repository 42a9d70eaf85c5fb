package clock

import (
	"errors"
	"io/fs"
	"math/rand"
	"path"
	"sort"
	"strings"
	"time"

	appLog "piclock/internal/log"
)

// Asset directories under the assets root.
const (
	customDir   = "custom"
	eventsDir   = "events"
	birthdayDir = "events/birthday"
)

// rotatePeriod is how long one image stays up before the time-based index
// moves on.
const rotatePeriod = 120 * time.Second

// Library lists the raw image assets under an fs.FS root.
type Library struct {
	fsys fs.FS
}

func NewLibrary(fsys fs.FS) *Library {
	return &Library{fsys: fsys}
}

// FS returns the root the asset paths are relative to.
func (l *Library) FS() fs.FS { return l.fsys }

// List returns the sorted .bin paths directly inside dir. A missing
// directory is an empty list.
func (l *Library) List(dir string) []string {
	entries, err := fs.ReadDir(l.fsys, dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			appLog.Warn("failed to list assets", "dir", dir, "err", err)
		}
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bin") {
			continue
		}
		out = append(out, path.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out
}

// Events returns today's event images (events/MMDD), shuffled with r.
func (l *Library) Events(mmdd string, r *rand.Rand) []string {
	files := l.List(path.Join(eventsDir, mmdd))
	r.Shuffle(len(files), func(i, j int) { files[i], files[j] = files[j], files[i] })
	return files
}

// pick selects an image that changes every rotatePeriod, shifted by offset.
func pick(files []string, offset int, now time.Time) string {
	if len(files) == 0 {
		return ""
	}
	i := (int(now.Unix()/int64(rotatePeriod/time.Second)) + offset) % len(files)
	if i < 0 {
		i += len(files)
	}
	return files[i]
}
