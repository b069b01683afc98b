package model

import (
	"encoding/json"
	"strings"
)

type ValueKind int

const (
	KindText ValueKind = iota
	KindChoices
	KindList
	KindFiles
)

// FieldValue is a previously submitted answer decoded according to its field type.
//
//   - KindText: Text
//   - KindChoices: Items (checkbox values, multiselect options, composite inputs)
//   - KindList: Items for single-column lists, Rows for multi-column lists
//   - KindFiles: Files (basenames or URLs)
type FieldValue struct {
	Kind  ValueKind
	Text  string
	Items []string
	Rows  [][]string
	Files []string
}

func TextValue(text string) FieldValue {
	return FieldValue{Kind: KindText, Text: text}
}

func ChoicesValue(items ...string) FieldValue {
	return FieldValue{Kind: KindChoices, Items: items}
}

func FilesValue(files ...string) FieldValue {
	return FieldValue{Kind: KindFiles, Files: files}
}

// String renders the value in the comma separated form used for field population.
// Multi-column list cells have their commas escaped so a row is never split.
func (v FieldValue) String() string {
	switch v.Kind {
	case KindChoices:
		return strings.Join(v.Items, ",")
	case KindFiles:
		return strings.Join(v.Files, ",")
	case KindList:
		if v.Rows == nil {
			return strings.Join(v.Items, ",")
		}
		rows := make([]string, 0, len(v.Rows))
		for _, row := range v.Rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				cells = append(cells, strings.ReplaceAll(cell, ",", "&#44;"))
			}
			rows = append(rows, strings.Join(cells, "|"))
		}
		return strings.Join(rows, ",")
	default:
		return v.Text
	}
}

func (v FieldValue) IsEmpty() bool {
	switch v.Kind {
	case KindChoices:
		return len(v.Items) == 0
	case KindFiles:
		return len(v.Files) == 0
	case KindList:
		return len(v.Items) == 0 && len(v.Rows) == 0
	default:
		return v.Text == ""
	}
}

// DecodeJSONList decodes a stored JSON array of strings. ok is false when raw is
// not a JSON array, in which case callers keep the raw string.
func DecodeJSONList(raw string) ([]string, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}

	var items []string
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, false
	}

	return items, true
}

// DecodeListRows decodes a stored list field. Multi-column lists are stored as an
// array of arrays, single-column lists as an array of strings.
func DecodeListRows(raw string) (items []string, rows [][]string, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return nil, nil, false
	}

	if err := json.Unmarshal([]byte(trimmed), &rows); err == nil {
		return nil, rows, true
	}

	if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
		return items, nil, true
	}

	return nil, nil, false
}

func EncodeJSONList(items []string) string {
	if items == nil {
		items = []string{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}

	return string(data)
}

func EncodeListRows(rows [][]string) string {
	if rows == nil {
		rows = [][]string{}
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return "[]"
	}

	return string(data)
}
