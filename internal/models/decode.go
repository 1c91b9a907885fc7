package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

var timeType = reflect.TypeOf(time.Time{})

// Layouts accepted for timestamps stored by older clients
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// DecodeRecord decodes a store record into a typed model using the model's json tags.
func DecodeRecord(record map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out,
		DecodeHook: mapstructure.DecodeHookFuncType(timeHook),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(record); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}

// EncodeRecord converts a typed model into its JSON-shaped record form
func EncodeRecord(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	var record map[string]interface{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return record, nil
}

// timeHook accepts RFC3339 strings, date-only strings, epoch milliseconds and
// {seconds, nanoseconds} maps for time.Time fields.
func timeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType {
		return data, nil
	}

	switch v := data.(type) {
	case time.Time:
		return v, nil
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("unrecognized time %q", v)
	case float64:
		return time.UnixMilli(int64(v)).UTC(), nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	case int:
		return time.UnixMilli(int64(v)).UTC(), nil
	case map[string]interface{}:
		secs, _ := v["seconds"].(float64)
		nanos, _ := v["nanoseconds"].(float64)
		return time.Unix(int64(secs), int64(nanos)).UTC(), nil
	}
	return data, nil
}
