package backend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"activityportal/internal/activities"
)

var activitiesSchema = mustSchema(map[string]interface{}{
	"type": "object",
	"additionalProperties": map[string]interface{}{
		"type":     "object",
		"required": []string{"max_participants", "participants"},
		"properties": map[string]interface{}{
			"description":      map[string]interface{}{"type": []string{"string", "null"}},
			"schedule":         map[string]interface{}{"type": []string{"string", "null"}},
			"category":         map[string]interface{}{"type": []string{"string", "null"}},
			"max_participants": map[string]interface{}{"type": "integer"},
			"participants": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	},
})

func mustSchema(doc map[string]interface{}) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("activities schema: %v", err))
	}
	return s
}

// ParseActivities validates a GET /activities body and decodes it into a
// store, keeping the key order of the JSON object.
func ParseActivities(body []byte) (activities.Store, error) {
	result, err := activitiesSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return activities.Store{}, fmt.Errorf("parse activities: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return activities.Store{}, fmt.Errorf("activities payload invalid: %s", strings.Join(errs, "; "))
	}

	var entries []activities.Entry
	var decodeErr error
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		var a activities.Activity
		if err := json.Unmarshal([]byte(value.Raw), &a); err != nil {
			decodeErr = fmt.Errorf("decode activity %q: %w", key.String(), err)
			return false
		}
		entries = append(entries, activities.Entry{Name: key.String(), Activity: a})
		return true
	})
	if decodeErr != nil {
		return activities.Store{}, decodeErr
	}

	return activities.NewStore(entries), nil
}

type envelope struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// detailText returns a string detail verbatim and any other non-null detail
// as compact JSON.
func (e envelope) detailText() string {
	raw := strings.TrimSpace(string(e.Detail))
	if raw == "" || raw == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	return raw
}
