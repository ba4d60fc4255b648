package httpapi

import (
	_ "embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
)

//go:embed openapi.json
var openAPIDoc []byte

func (s *Server) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPIDoc)
}

// static serves {path} from the static directory, falling back to
// {path}/index.html when {path} is not a regular file.
func (s *Server) static(w http.ResponseWriter, r *http.Request) {
	if s.staticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := path.Clean("/" + r.PathValue("path"))
	name := filepath.Join(s.staticDir, filepath.FromSlash(rel))

	f, err := openRegular(name)
	if errors.Is(err, fs.ErrNotExist) {
		f, err = openRegular(filepath.Join(name, "index.html"))
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// openRegular opens name only if it is a regular file. Directories and
// missing files report fs.ErrNotExist.
func openRegular(name string) (*os.File, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fs.ErrNotExist
	}
	return os.Open(name)
}
