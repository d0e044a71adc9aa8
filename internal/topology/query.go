package topology

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Query looks up a value in a snapshot's JSON form. Both gjson paths
// ("agents.#.address") and simple JSONPath expressions ("$.agents[0].address")
// are accepted. Strings are returned unquoted, everything else as raw JSON.
func Query(snapshotJSON, path string) (string, error) {
	if snapshotJSON == "" {
		return "", errors.New("empty topology")
	}
	if path == "" {
		return "", errors.New("empty query path")
	}

	result := gjson.Get(snapshotJSON, toGjsonPath(path))
	if !result.Exists() {
		return "", errors.Errorf("path not found: %s", path)
	}
	if result.Type == gjson.String {
		return result.String(), nil
	}
	return result.Raw, nil
}

// toGjsonPath converts the JSONPath subset of dotted names and [n] indexes to
// gjson syntax. Paths without a leading $ are assumed to be gjson already.
func toGjsonPath(path string) string {
	if !strings.HasPrefix(path, "$") {
		return path
	}
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	path = strings.NewReplacer("['", ".", "']", "", `["`, ".", `"]`, "", "[*]", ".#", "[", ".", "]", "").Replace(path)
	return strings.TrimPrefix(path, ".")
}
