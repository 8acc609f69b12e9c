package httpapi

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"io/fs"
	"path"
	"strings"
	"time"
)

//go:embed assets
var embedded embed.FS

// staticFS is the assets directory served under /assets/.
var staticFS = subdir(embedded, "assets")

const baseHrefPlaceholder = "<!-- BASE_HREF -->"

func subdir(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return fsys
	}
	return sub
}

// mountPath turns a configured base path into "/a/b" form, or "" for root.
func mountPath(value string) string {
	trimmed := strings.Trim(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return ""
	}
	cleaned := path.Clean("/" + trimmed)
	if cleaned == "/" {
		return ""
	}
	return cleaned
}

// baseHref is the <base href> of the page: the external URL (if any) joined
// with the mount path, always ending in "/". Empty means no base element.
func baseHref(baseURL, mount string) string {
	href := strings.TrimRight(strings.TrimSpace(baseURL), "/") + mount
	if href == "" {
		return ""
	}
	return href + "/"
}

// indexPage is index.html with the base element filled in.
type indexPage struct {
	body    []byte
	modTime time.Time
}

func renderIndex(fsys fs.FS, href string) (indexPage, error) {
	data, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		return indexPage{}, fmt.Errorf("read index: %w", err)
	}
	info, err := fs.Stat(fsys, "index.html")
	if err != nil {
		return indexPage{}, fmt.Errorf("stat index: %w", err)
	}
	base := ""
	if href != "" {
		base = fmt.Sprintf(`<base href="%s" />`, html.EscapeString(href))
	}
	return indexPage{
		body:    bytes.ReplaceAll(data, []byte(baseHrefPlaceholder), []byte(base)),
		modTime: info.ModTime(),
	}, nil
}
