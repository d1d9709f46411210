package periodic

import (
	"strings"
	"time"
)

// JoinPath joins path parts with "/". Empty and "." segments are dropped and
// a leading "/" on the first part is kept.
func JoinPath(parts ...string) string {
	var segs []string
	for _, p := range parts {
		for _, s := range strings.Split(p, "/") {
			if s == "" || s == "." {
				continue
			}
			segs = append(segs, s)
		}
	}
	joined := strings.Join(segs, "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "/") {
		return "/" + joined
	}
	return joined
}

// NotePath returns the vault-relative path of the g-note for date. Empty
// overrides fall back to the configured format and folder.
func NotePath(lib DateLibrary, cfg Config, g Granularity, date time.Time, formatOverride, folderOverride string) string {
	nc := cfg.Get(g)
	format := formatOverride
	if format == "" {
		format = nc.SelectedFormat(g)
	}
	folder := folderOverride
	if folder == "" {
		folder = nc.Folder
	}
	name := lib.Format(date, format)
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	return strings.TrimPrefix(JoinPath(folder, name), "/")
}
