package forms

import (
	"context"
	"encoding/json"
	"html"
	"strconv"
	"strings"

	"go-form-editor/internal/model"
)

func renderForm(ctx context.Context, req *Request, form *model.Form, opts RenderOptions) string {
	id := strconv.FormatInt(form.ID, 10)

	var b strings.Builder
	b.WriteString(`<div class="gform_wrapper" id="gform_wrapper_` + id + `">`)
	if opts.DisplayTitle && form.Title != "" {
		b.WriteString(`<h3 class="gform_title">` + html.EscapeString(form.Title) + `</h3>`)
	}
	if opts.DisplayDescription && form.Description != "" {
		b.WriteString(`<span class="gform_description">` + html.EscapeString(form.Description) + `</span>`)
	}

	tag := `<form method="post" enctype="multipart/form-data" id="gform_` + id + `" action="` + html.EscapeString(req.Permalink) + `">`
	tag = req.Hooks.FormTag.Run(ctx, form.ID, FormTagArgs{Tag: tag, Form: form}).Tag
	b.WriteString(tag)

	b.WriteString(`<div class="gform_body"><ul class="gform_fields">`)
	for _, field := range form.Fields {
		value, hasValue := opts.FieldValues[field.ID]
		writeField(&b, req, form.ID, field, value, hasValue)
	}
	b.WriteString(`</ul></div>`)

	b.WriteString(hidden(FieldSubmit, id))
	if opts.AJAX {
		b.WriteString(hidden(FieldAJAX, "1"))
	}
	if payload := uploadedFilesPayload(req, form); payload != "" {
		b.WriteString(hidden(FieldUploadedFiles, payload))
	}
	b.WriteString(`<div class="gform_footer"><input type="submit" class="gform_button" value="Submit" /></div>`)
	b.WriteString(`</form></div>`)

	return b.String()
}

func hidden(name, value string) string {
	return `<input type="hidden" name="` + html.EscapeString(name) + `" value="` + html.EscapeString(value) + `" />`
}

func writeField(b *strings.Builder, req *Request, formID int64, field model.Field, value model.FieldValue, hasValue bool) {
	name := field.InputName()
	domID := "input_" + strconv.FormatInt(formID, 10) + "_" + strconv.Itoa(field.ID)

	if field.Type == model.FieldHidden {
		b.WriteString(`<input type="hidden" name="` + name + `" id="` + domID + `" value="` + html.EscapeString(textOf(field, value, hasValue)) + `" />`)
		return
	}

	b.WriteString(`<li id="field_` + strconv.FormatInt(formID, 10) + "_" + strconv.Itoa(field.ID) + `" class="gfield gfield--type-` + string(field.Type) + `">`)
	b.WriteString(`<label class="gfield_label" for="` + domID + `">` + html.EscapeString(field.Label))
	if field.IsRequired {
		b.WriteString(`<span class="gfield_required">*</span>`)
	}
	b.WriteString(`</label><div class="ginput_container">`)

	switch field.Type {
	case model.FieldTextarea:
		b.WriteString(`<textarea name="` + name + `" id="` + domID + `">` + html.EscapeString(textOf(field, value, hasValue)) + `</textarea>`)
	case model.FieldCheckbox:
		selected := selectedValues(field, value, hasValue)
		for i, input := range subInputs(field) {
			if i >= len(field.Choices) {
				break
			}
			choice := field.Choices[i]
			b.WriteString(`<label><input type="checkbox" name="` + subInputName(input.ID) + `" value="` + html.EscapeString(choice.Value) + `"`)
			if choice.IsSelected || selected[choice.Value] {
				b.WriteString(` checked="checked"`)
			}
			b.WriteString(` /> ` + html.EscapeString(choice.Text) + `</label>`)
		}
	case model.FieldRadio:
		selected := selectedValues(field, value, hasValue)
		for _, choice := range field.Choices {
			b.WriteString(`<label><input type="radio" name="` + name + `" value="` + html.EscapeString(choice.Value) + `"`)
			if choice.IsSelected || selected[choice.Value] {
				b.WriteString(` checked="checked"`)
			}
			b.WriteString(` /> ` + html.EscapeString(choice.Text) + `</label>`)
		}
	case model.FieldSelect, model.FieldMultiselect:
		selected := selectedValues(field, value, hasValue)
		if field.Type == model.FieldMultiselect {
			b.WriteString(`<select multiple="multiple" name="` + name + `[]" id="` + domID + `">`)
		} else {
			b.WriteString(`<select name="` + name + `" id="` + domID + `">`)
		}
		for _, choice := range field.Choices {
			b.WriteString(`<option value="` + html.EscapeString(choice.Value) + `"`)
			if choice.IsSelected || selected[choice.Value] {
				b.WriteString(` selected="selected"`)
			}
			b.WriteString(`>` + html.EscapeString(choice.Text) + `</option>`)
		}
		b.WriteString(`</select>`)
	case model.FieldList:
		for _, row := range listRows(field, value, hasValue) {
			b.WriteString(`<div class="gfield_list_row">`)
			for _, cell := range row {
				b.WriteString(`<input type="text" name="` + name + `[]" value="` + html.EscapeString(cell) + `" />`)
			}
			b.WriteString(`</div>`)
		}
	case model.FieldName, model.FieldAddress:
		for _, input := range field.Inputs {
			b.WriteString(`<input type="text" name="` + subInputName(input.ID) + `" placeholder="` + html.EscapeString(input.Label) + `" />`)
		}
	case model.FieldFileUpload:
		if upload, ok := req.TrackedUpload(formID, name); ok && len(upload.Files) > 0 {
			b.WriteString(`<ul class="ginput_preview_list">`)
			for _, file := range upload.Files {
				b.WriteString(`<li class="ginput_preview">` + html.EscapeString(file) + `</li>`)
			}
			b.WriteString(`</ul><label><input type="checkbox" name="` + deletePrefix + name + `" value="1" /> Remove</label>`)
		}
		b.WriteString(`<input type="file" name="` + name)
		if field.MultipleFiles {
			b.WriteString(`[]" multiple="multiple`)
		}
		b.WriteString(`" id="` + domID + `" />`)
	default:
		// Numbers stay text inputs so locale formatted values survive.
		inputType := "text"
		if field.Type == model.FieldEmail {
			inputType = "email"
		}
		b.WriteString(`<input type="` + inputType + `" name="` + name + `" id="` + domID + `" value="` + html.EscapeString(textOf(field, value, hasValue)) + `" />`)
	}

	b.WriteString(`</div></li>`)
}

func textOf(field model.Field, value model.FieldValue, hasValue bool) string {
	if hasValue && !value.IsEmpty() {
		return value.String()
	}
	return field.DefaultValue
}

func selectedValues(field model.Field, value model.FieldValue, hasValue bool) map[string]bool {
	var items []string
	switch {
	case hasValue && value.Kind == model.KindChoices:
		items = value.Items
	case hasValue && value.Kind == model.KindText && value.Text != "":
		items = strings.Split(value.Text, ",")
	case field.DefaultValue != "":
		if decoded, ok := model.DecodeJSONList(field.DefaultValue); ok {
			items = decoded
		} else {
			items = strings.Split(field.DefaultValue, ",")
		}
	}

	selected := make(map[string]bool, len(items))
	for _, item := range items {
		selected[item] = true
	}

	return selected
}

// listRows yields the rows to show for a list field plus one blank row.
func listRows(field model.Field, value model.FieldValue, hasValue bool) [][]string {
	columns := len(field.Choices)
	if columns < 1 {
		columns = 1
	}

	var rows [][]string
	switch {
	case hasValue && value.Kind == model.KindList && value.Rows != nil:
		rows = value.Rows
	case hasValue && value.Kind == model.KindList:
		for _, item := range value.Items {
			rows = append(rows, []string{item})
		}
	case field.DefaultValue != "":
		if items, decodedRows, ok := model.DecodeListRows(field.DefaultValue); ok {
			rows = decodedRows
			for _, item := range items {
				rows = append(rows, []string{item})
			}
		}
	}

	blank := make([]string, columns)
	return append(rows, blank)
}

// uploadedFilesPayload encodes tracked uploads the way a resubmission sends
// them back: a file name for single inputs, a list of objects for multiple.
func uploadedFilesPayload(req *Request, form *model.Form) string {
	tracked := req.UploadedFiles[form.ID]
	if len(tracked) == 0 {
		return ""
	}

	type uploaded struct {
		Name string `json:"uploaded_filename"`
	}

	out := make(map[string]any, len(tracked))
	for input, upload := range tracked {
		if upload.Multiple {
			list := make([]uploaded, 0, len(upload.Files))
			for _, f := range upload.Files {
				list = append(list, uploaded{Name: f})
			}
			out[input] = list
			continue
		}
		if len(upload.Files) > 0 {
			out[input] = upload.Files[0]
		} else {
			out[input] = nil
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return ""
	}

	return string(data)
}
