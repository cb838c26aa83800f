// Package utils holds small helpers for digging values out of raw log maps.
package utils

import "strings"

// GetField retrieves nested JSON keys with dot notation, walking one map
// level per path segment. The final segment may resolve to any value type.
func GetField(key string, data map[string]interface{}) (interface{}, bool) {
	if data == nil {
		return nil, false
	}
	bits := strings.SplitN(key, ".", 2)
	val, ok := data[bits[0]]
	if !ok {
		return nil, false
	}
	if len(bits) == 1 {
		return val, true
	}
	switch res := val.(type) {
	case map[string]interface{}:
		return GetField(bits[1], res)
	case map[interface{}]interface{}:
		// yaml.v2 decodes nested maps with interface keys
		conv := make(map[string]interface{}, len(res))
		for k, v := range res {
			if ks, ok := k.(string); ok {
				conv[ks] = v
			}
		}
		return GetField(bits[1], conv)
	default:
		return nil, false
	}
}
