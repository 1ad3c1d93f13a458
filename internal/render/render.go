// Package render turns query results into terminal tables, PNG charts and
// exported files.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/afero"
)

var (
	ErrNoData          = errors.New("no data to render")
	ErrUnsupportedMode = errors.New("unsupported render mode")
)

const timestampLayout = "20060102_150405"

// Renderer writes charts and exports under one output directory.
type Renderer struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// New creates a renderer writing into dir on fs.
func New(fs afero.Fs, dir string) *Renderer {
	return &Renderer{fs: fs, dir: dir, now: time.Now}
}

// Dir returns the output directory.
func (r *Renderer) Dir() string {
	return r.dir
}

// Fs returns the filesystem files are written to.
func (r *Renderer) Fs() afero.Fs {
	return r.fs
}

// create opens a fresh file named prefix_<timestamp>[_n].ext.
func (r *Renderer) create(prefix, ext string) (afero.File, string, error) {
	if err := r.fs.MkdirAll(r.dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create output directory: %w", err)
	}
	base := prefix + "_" + r.now().Format(timestampLayout)
	path := filepath.Join(r.dir, base+ext)
	for n := 2; ; n++ {
		f, err := r.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !os.IsExist(err) {
			return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		path = filepath.Join(r.dir, base+"_"+strconv.Itoa(n)+ext)
	}
}

// FormatValue renders a cell for display and text exports.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', 2, 64)
	case float32:
		return FormatValue(float64(x))
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	}
	return fmt.Sprint(v)
}
