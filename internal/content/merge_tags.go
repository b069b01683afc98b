package content

import (
	"html"
	"regexp"
	"strconv"
	"strings"

	"go-form-editor/internal/model"
)

var mergeTag = regexp.MustCompile(`\{([^{}]*?)\}`)

// ReplaceVariables substitutes form and entry aware merge tags:
// {form_title}, {form_id}, {entry_id}, {date_created}, {source_url},
// {all_fields} and field tags such as {Email:3} or {:5.2}.
// Unknown tags are left untouched. Field values are HTML escaped.
func ReplaceVariables(text string, form *model.Form, entry *model.Entry) string {
	if !strings.Contains(text, "{") {
		return text
	}

	return mergeTag.ReplaceAllStringFunc(text, func(tag string) string {
		name := tag[1 : len(tag)-1]

		switch name {
		case "form_title":
			if form == nil {
				return ""
			}
			return html.EscapeString(form.Title)
		case "form_id":
			if form == nil {
				return ""
			}
			return strconv.FormatInt(form.ID, 10)
		case "entry_id":
			if entry == nil {
				return ""
			}
			return strconv.FormatInt(entry.ID, 10)
		case "date_created":
			if entry == nil {
				return ""
			}
			return entry.DateCreated.Format("01/02/2006")
		case "source_url":
			if entry == nil {
				return ""
			}
			return html.EscapeString(entry.SourceURL)
		case "all_fields":
			return allFields(form, entry)
		}

		idx := strings.LastIndex(name, ":")
		if idx < 0 {
			return tag
		}

		inputID := name[idx+1:]
		fieldID := model.InputFieldID(inputID)
		if fieldID == 0 || form == nil {
			return tag
		}
		field, ok := form.Field(fieldID)
		if !ok {
			return tag
		}
		if entry == nil {
			return ""
		}

		if strings.Contains(inputID, ".") {
			return html.EscapeString(entry.Values[inputID])
		}

		return html.EscapeString(DisplayValue(*field, entry))
	})
}

// DisplayValue formats the stored value of field for people to read.
func DisplayValue(field model.Field, entry *model.Entry) string {
	if entry == nil {
		return ""
	}

	raw := entry.Values[strconv.Itoa(field.ID)]

	switch field.Type {
	case model.FieldCheckbox, model.FieldName, model.FieldAddress:
		sep := ", "
		if field.Type != model.FieldCheckbox {
			sep = " "
		}
		parts := make([]string, 0, len(field.Inputs))
		for _, value := range entry.FieldInputs(field.ID) {
			if strings.TrimSpace(value) != "" {
				parts = append(parts, value)
			}
		}
		return strings.Join(parts, sep)
	case model.FieldMultiselect:
		if items, ok := model.DecodeJSONList(raw); ok {
			return strings.Join(items, ", ")
		}
		return raw
	case model.FieldFileUpload:
		if files, ok := model.DecodeJSONList(raw); ok {
			return strings.Join(files, ", ")
		}
		return raw
	case model.FieldList:
		items, rows, ok := model.DecodeListRows(raw)
		if !ok {
			return raw
		}
		if rows == nil {
			return strings.Join(items, ", ")
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, strings.Join(row, " | "))
		}
		return strings.Join(lines, ", ")
	default:
		return raw
	}
}

func allFields(form *model.Form, entry *model.Entry) string {
	if form == nil || entry == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(`<table class="gform_all_fields">`)
	for _, field := range form.Fields {
		if field.Type == model.FieldHidden {
			continue
		}
		value := DisplayValue(field, entry)
		if value == "" {
			continue
		}
		b.WriteString("<tr><th>")
		b.WriteString(html.EscapeString(field.Label))
		b.WriteString("</th><td>")
		b.WriteString(html.EscapeString(value))
		b.WriteString("</td></tr>")
	}
	b.WriteString("</table>")

	return b.String()
}
