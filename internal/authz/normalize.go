package authz

import (
	"encoding/json"
	"strings"
)

// NormalizePermissions is the single ingestion boundary for permission
// payloads. Storage may deliver permissions as an array, a JSON-encoded
// string, or a delimited string; every shape collapses to a deduplicated
// PermissionSet here. Malformed input normalizes to the empty set, never to
// an error: a role that cannot be parsed has no permissions.
func NormalizePermissions(raw any) PermissionSet {
	switch v := raw.(type) {
	case nil:
		return PermissionSet{}
	case PermissionSet:
		return normalizeTags(permissionStrings(v))
	case []Permission:
		tags := make([]string, len(v))
		for i, p := range v {
			tags[i] = string(p)
		}
		return normalizeTags(tags)
	case []string:
		return normalizeTags(v)
	case []any:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return normalizeTags(tags)
	case []byte:
		return normalizeString(string(v))
	case string:
		return normalizeString(v)
	default:
		return PermissionSet{}
	}
}

func permissionStrings(set PermissionSet) []string {
	tags := make([]string, 0, len(set))
	for p := range set {
		tags = append(tags, string(p))
	}
	return tags
}

func normalizeString(raw string) PermissionSet {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PermissionSet{}
	}

	// JSON array string first: a payload starting with '[' that fails to
	// parse is malformed, not delimited.
	if strings.HasPrefix(raw, "[") {
		var decoded []any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return PermissionSet{}
		}
		return NormalizePermissions(decoded)
	}

	sep := ","
	if !strings.Contains(raw, ",") && strings.Contains(raw, ";") {
		sep = ";"
	}
	return normalizeTags(strings.Split(raw, sep))
}

func normalizeTags(tags []string) PermissionSet {
	set := make(PermissionSet, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		set[Permission(tag)] = struct{}{}
	}
	return set
}

// NormalizeTag canonicalizes a single permission tag.
func NormalizeTag(p Permission) Permission {
	return Permission(strings.ToLower(strings.TrimSpace(string(p))))
}
