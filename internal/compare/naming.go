package compare

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"
)

// stem returns the basename of path up to its first dot, so that
// "home.mobile.png" and "home.png" both yield "home".
func stem(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

func shortHash(s string, n int) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:n]
}

// batchOutputNames derives one composite filename per target. Names that
// collide within the batch get a path hash suffix, then the target index.
func batchOutputNames(baseline string, targets []string) []string {
	names := make([]string, len(targets))
	used := make(map[string]struct{}, len(targets))
	for i, target := range targets {
		prefix := "diff_" + stem(baseline) + "_" + stem(target)
		names[i] = unique(used, prefix, ".png", shortHash(target, 8), strconv.Itoa(i))
	}
	return names
}

// unique returns prefix+ext, or the first of prefix_suffix+ext that is not
// yet in used, and marks the result as used.
func unique(used map[string]struct{}, prefix string, ext string, suffixes ...string) string {
	name := prefix + ext
	for _, suffix := range suffixes {
		if _, ok := used[name]; !ok {
			break
		}
		prefix += "_" + suffix
		name = prefix + ext
	}
	for n := 2; ; n++ {
		if _, ok := used[name]; !ok {
			break
		}
		name = prefix + "_" + strconv.Itoa(n) + ext
	}
	used[name] = struct{}{}
	return name
}

// resultKeys keys each target by its basename, falling back to the path
// as given and then to an index when basenames repeat.
func resultKeys(targets []string) []string {
	keys := make([]string, len(targets))
	used := make(map[string]struct{}, len(targets))
	for i, target := range targets {
		key := filepath.Base(target)
		if _, ok := used[key]; ok {
			key = target
		}
		if _, ok := used[key]; ok {
			key = target + "#" + strconv.Itoa(i)
		}
		used[key] = struct{}{}
		keys[i] = key
	}
	return keys
}

// contextOutputName flattens separators in context names; a name that
// still collides with one in used gets a context name hash suffix.
func contextOutputName(used map[string]struct{}, reference string, contextName string, basename string) string {
	ext := filepath.Ext(basename)
	prefix := "diff_" + sanitize(reference) + "_" + sanitize(contextName) + "_" + strings.TrimSuffix(basename, ext)
	return unique(used, prefix, ext, shortHash(contextName, 8))
}

func sanitize(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}
