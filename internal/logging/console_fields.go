package logging

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type infoField struct {
	label string
	value string
}

const maxInfoValueLen = 160

// infoHighlightKeys are shown first, in this order, on info-level console lines.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"error",
	FieldErrorHint,
	FieldImpact,
	"status",
	"restaurant_count",
	"restaurants_written",
	"menu_count",
	"menus_written",
	"skipped_restaurants",
	"menu_files",
	"failed_slots",
	"failed_stage",
	"slot_count",
	"stage_duration",
	"run_duration",
}

var labelCaser = cases.Title(language.English)

// selectInfoFields orders fields for info-level output and counts the ones
// kept out of it.
func selectInfoFields(attrs []kv) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, len(attrs))
	hidden := 0

	emit := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if skipInfoKey(attr.key) {
			return
		}
		if isDebugOnlyKey(attr.key) {
			hidden++
			return
		}
		value := formatValueForKey(attr.key, attr.value)
		if attr.key != "error" && len(value) > maxInfoValueLen {
			hidden++
			return
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: value})
	}

	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				emit(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			emit(idx)
		}
	}
	return result, hidden
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindDuration {
		return formatDurationHuman(v.Duration())
	}
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	value := formatValue(v)
	if key == "error" && len(value) > 240 {
		value = value[:240] + "…"
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldTargetDate, FieldSlot, FieldStage:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case FieldRunID, FieldCorrelationID, "query", "user_agent":
		return true
	}
	return strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "_dir")
}

func displayLabel(key string) string {
	switch key {
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case "restaurant_count":
		return "Restaurants"
	case "restaurants_written":
		return "Restaurants Saved"
	case "menu_count":
		return "Menus"
	case "menus_written":
		return "Menus Saved"
	case "skipped_restaurants":
		return "Skipped"
	case "menu_files":
		return "Menu Files"
	case "stage_duration", "run_duration":
		return "Duration"
	default:
		return labelCaser.String(strings.NewReplacer("_", " ", "-", " ").Replace(key))
	}
}
