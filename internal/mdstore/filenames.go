package mdstore

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var forbiddenFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// sanitizeTitle turns a user-supplied title into a safe filename base
// (without extension), collapsing any run of forbidden characters to a
// single space and trimming the result. An empty result falls back to
// "untitled".
func sanitizeTitle(title string) string {
	cleaned := forbiddenFilenameChars.ReplaceAllString(title, " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	cleaned = strings.TrimRight(cleaned, ".")
	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

// collisionFreeName returns a filename in dir based on baseTitle+ext that
// does not currently exist, appending " (2)", " (3)", … as needed.
// exclude, if non-empty, is a filename that's allowed to already exist
// (the file being renamed).
func collisionFreeName(dir, baseTitle, ext, exclude string) string {
	name := sanitizeTitle(baseTitle) + ext
	if name == exclude {
		return name
	}
	if !exists(filepath.Join(dir, name)) {
		return name
	}

	for n := 2; ; n++ {
		candidate := sanitizeTitle(baseTitle) + " (" + strconv.Itoa(n) + ")" + ext
		if candidate == exclude {
			return candidate
		}
		if !exists(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// dirOf returns relPath's parent directory in slash form, or "" if
// relPath has no parent beyond the root.
func dirOf(relPath string) string {
	dir := filepath.ToSlash(filepath.Dir(relPath))
	if dir == "." {
		return ""
	}
	return dir
}
