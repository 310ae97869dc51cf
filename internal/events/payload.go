package events

import (
	"encoding/json"
	"strconv"
)

// ContentPlayPayload is the decoded extra data of a content-play event.
// SubIndex distinguishes parts within one piece of content and defaults
// to "1" when the client omits it.
type ContentPlayPayload struct {
	ContentID string
	SubIndex  string
}

// DefaultSubIndex is used when a play event does not name a part.
const DefaultSubIndex = "1"

type payloadParser func(raw map[string]interface{}) (interface{}, bool)

// payloadParsers maps event names to their extra-data decoders. Events
// without an entry keep their raw JSON and are ignored by the typed
// aggregators.
var payloadParsers = map[string]payloadParser{
	EventNameContentPlay: parseContentPlay,
}

func parseContentPlay(raw map[string]interface{}) (interface{}, bool) {
	contentID := stringField(raw, "contentId")
	if contentID == "" {
		return nil, false
	}
	subIndex := stringField(raw, "subIndex")
	if subIndex == "" {
		subIndex = DefaultSubIndex
	}
	return ContentPlayPayload{ContentID: contentID, SubIndex: subIndex}, true
}

// ContentPlay decodes the payload of a stored event, reporting false for
// events that are not plays or whose extra data is malformed. Malformed
// payloads are skipped by aggregation, never counted under a fallback
// bucket.
func ContentPlay(e Event) (ContentPlayPayload, bool) {
	if e.EventName != EventNameContentPlay {
		return ContentPlayPayload{}, false
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(e.ExtraData), &raw); err != nil {
		return ContentPlayPayload{}, false
	}

	parsed, ok := payloadParsers[EventNameContentPlay](raw)
	if !ok {
		return ContentPlayPayload{}, false
	}
	return parsed.(ContentPlayPayload), true
}

// stringField reads a payload field that clients send either as a string
// or as a bare number.
func stringField(raw map[string]interface{}, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
