package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// maxExactInt bounds the floats that still map to a single integer.
const maxExactInt = 1 << 53

// Tag groups feeds. MPsID holds the serialized association list as stored.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	MPsID string `json:"mps_id"`
}

// FeedIDs decodes MPsID into the distinct feed ids it references, in order.
// Entries may be bare ids or objects carrying an "id" field; entries without
// a usable id are skipped. A payload that is not a JSON array yields an
// empty set and ok=false.
func (t *Tag) FeedIDs() (ids []string, ok bool) {
	payload := strings.TrimSpace(t.MPsID)
	if payload == "" {
		return []string{}, true
	}

	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return []string{}, false
	}

	ids = lo.FilterMap(entries, func(entry json.RawMessage, _ int) (string, bool) {
		return entryID(entry)
	})
	return lo.Uniq(ids), true
}

func entryID(entry json.RawMessage) (string, bool) {
	entry = bytes.TrimSpace(entry)
	if len(entry) == 0 {
		return "", false
	}

	switch entry[0] {
	case '{':
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(entry, &obj); err != nil || len(obj.ID) == 0 {
			return "", false
		}
		if bytes.TrimSpace(obj.ID)[0] == '{' {
			return "", false
		}
		return entryID(obj.ID)
	case '"':
		var s string
		if err := json.Unmarshal(entry, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	default:
		var n json.Number
		if err := json.Unmarshal(entry, &n); err != nil || n == "" {
			return "", false
		}
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		// 2.0 and 1e3 name the same feeds as 2 and 1000
		if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
			return strconv.FormatInt(int64(f), 10), true
		}
		return n.String(), true
	}
}
