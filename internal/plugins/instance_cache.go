package plugins

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// hashConfig produces a stable cache key for a plugin config map so
// that GetInstance returns the same Handler for two calls with
// deep-equal configs, regardless of map key iteration order.
func hashConfig(config map[string]interface{}) string {
	if len(config) == 0 {
		return "-"
	}

	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		ordered = append(ordered, k, config[k])
	}

	b, err := json.Marshal(ordered)
	if err != nil {
		return "-"
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
