package scheduler

import (
	"maps"
	"slices"
	"strings"
)

// MergeEnv layers override maps on top of an environment list in KEY=VALUE
// form. Later layers win. Inherited entries keep their order; new keys are
// appended in sorted order per layer.
func MergeEnv(environ []string, layers ...map[string]string) []string {
	out := slices.Clone(environ)
	index := make(map[string]int, len(out))
	for i, kv := range out {
		key, _, _ := strings.Cut(kv, "=")
		index[key] = i
	}
	for _, layer := range layers {
		for _, key := range slices.Sorted(maps.Keys(layer)) {
			entry := key + "=" + layer[key]
			if i, ok := index[key]; ok {
				out[i] = entry
				continue
			}
			index[key] = len(out)
			out = append(out, entry)
		}
	}
	return out
}

// ParseEnvList converts KEY=VALUE entries into a map. Entries without "="
// map to the empty string. Later duplicates win.
func ParseEnvList(entries []string) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	env := make(map[string]string, len(entries))
	for _, e := range entries {
		key, value, _ := strings.Cut(e, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// EnvValue returns the last value of key in an environment list.
func EnvValue(environ []string, key string) (string, bool) {
	for i := len(environ) - 1; i >= 0; i-- {
		k, v, ok := strings.Cut(environ[i], "=")
		if ok && k == key {
			return v, true
		}
	}
	return "", false
}
