package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

var contentTypes = map[string]string{
	".png":  "image/png",
	".csv":  "text/csv; charset=utf-8",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// FilesHandler serves charts and exports from the output directory
type FilesHandler struct {
	fs  afero.Fs
	dir string
}

// NewFilesHandler creates a new FilesHandler
func NewFilesHandler(fs afero.Fs, dir string) *FilesHandler {
	return &FilesHandler{fs: fs, dir: dir}
}

// validName accepts a bare file name with a known extension.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || path.Base(name) != name {
		return false
	}
	_, ok := contentTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Download streams a generated file
// @Summary Download a chart or export
// @Tags Ventas
// @Param name path string true "File name"
// @Success 200 {file} file
// @Router /api/v1/files/{name} [get]
func (h *FilesHandler) Download(c *gin.Context) {
	name := c.Param("name")
	if !validName(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}

	f, err := h.fs.Open(filepath.Join(h.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		writeError(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(c, err)
		return
	}

	c.DataFromReader(http.StatusOK, info.Size(), contentTypes[strings.ToLower(filepath.Ext(name))], f, map[string]string{
		"Content-Disposition": `attachment; filename="` + name + `"`,
	})
}
