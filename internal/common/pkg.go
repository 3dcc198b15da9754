package common

import (
	"path"
	"regexp"
	"strings"
)

var majorVersion = regexp.MustCompile(`^v[0-9]+$`)

// PkgAlias guesses the name a Go package is imported under when the import
// has no explicit name: the last path element, skipping a "/vN" major version
// suffix and dropping a gopkg.in ".vN" suffix or a "go-" prefix.
func PkgAlias(pkgPath string) string {
	if pkgPath == "" {
		return ""
	}

	dir, base := path.Split(pkgPath)
	if majorVersion.MatchString(base) && dir != "" {
		base = path.Base(strings.TrimSuffix(dir, "/"))
	}

	if i := strings.Index(base, ".v"); i > 0 && majorVersion.MatchString(base[i+1:]) {
		base = base[:i]
	}

	return strings.TrimPrefix(base, "go-")
}
