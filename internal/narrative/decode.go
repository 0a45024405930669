// Package narrative maps stored and generated narrative records into the
// model types and derives the dashboard views built on top of them.
package narrative

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"narrativelens/internal/model"
)

// The JSON columns are written by the refresh job but older rows (and raw
// model output) may use snake_case keys or omit fields entirely, so every
// decoder here accepts both spellings and fills defaults.

func decodeObjects(raw []byte) []map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var objs []map[string]any
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil
	}
	return objs
}

func DecodeAssumptions(raw []byte) []model.Assumption {
	objs := decodeObjects(raw)
	out := make([]model.Assumption, 0, len(objs))
	for _, o := range objs {
		out = append(out, model.Assumption{
			ID:             stringField(o, "id"),
			Text:           stringField(o, "text"),
			FragilityScore: int(numberField(o, model.DefaultFragility, "fragilityScore", "fragility_score")),
		})
	}
	return out
}

func DecodeEvidence(raw []byte, now time.Time) []model.Evidence {
	objs := decodeObjects(raw)
	out := make([]model.Evidence, 0, len(objs))
	for _, o := range objs {
		out = append(out, model.Evidence{
			ID:          stringField(o, "id"),
			Source:      stringField(o, "source"),
			Description: stringField(o, "description"),
			Timestamp:   timeField(o, now, "timestamp"),
			Weight:      numberField(o, model.DefaultEvidenceWeight, "weight"),
		})
	}
	return out
}

func DecodeAssets(raw []byte) []model.AffectedAsset {
	objs := decodeObjects(raw)
	out := make([]model.AffectedAsset, 0, len(objs))
	for _, o := range objs {
		out = append(out, model.AffectedAsset{
			Ticker:         stringField(o, "ticker"),
			Name:           stringField(o, "name"),
			ExposureWeight: numberField(o, 0, "exposureWeight", "exposure_weight"),
		})
	}
	return out
}

func DecodeHistory(raw []byte, now time.Time) []model.HistoryPoint {
	objs := decodeObjects(raw)
	out := make([]model.HistoryPoint, 0, len(objs))
	for _, o := range objs {
		out = append(out, model.HistoryPoint{
			Timestamp:       timeField(o, now, "timestamp"),
			ConfidenceScore: int(numberField(o, model.DefaultHistoryScore, "confidenceScore", "confidence_score")),
			Summary:         stringField(o, "summary"),
		})
	}
	return out
}

func stringField(o map[string]any, key string) string {
	switch v := o[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// numberField returns the first present key that holds a number, so an
// explicit 0 is kept and only absent (or null) values fall through.
func numberField(o map[string]any, def float64, keys ...string) float64 {
	for _, k := range keys {
		switch v := o[k].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return def
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func timeField(o map[string]any, def time.Time, key string) time.Time {
	switch v := o[key].(type) {
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	case float64:
		if v > 0 {
			return time.UnixMilli(int64(v)).UTC()
		}
	}
	return def
}
