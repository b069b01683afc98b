package editentry

import (
	"context"
	"path"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"go-form-editor/internal/forms"
	"go-form-editor/internal/model"
)

// PrefillFieldValues copies the actor's latest answers into the per-request
// form copy. Choice fields get their matching choices selected, every other
// field gets its default value replaced. Sub-inputs of composite fields such
// as name and address are not filled.
func (e *Editor) PrefillFieldValues(ctx context.Context, s *Session, form *model.Form) *model.Form {
	if form == nil {
		return form
	}

	entryID, ok := e.LatestEntryID(ctx, form.ID, s.Actor())
	if !ok {
		return form
	}

	entry, err := e.entries.GetEntry(ctx, entryID)
	if err != nil {
		e.logger.Warn("load entry for prefill failed", "form_id", form.ID, "entry_id", entryID, "error", err)
		return form
	}

	for i := range form.Fields {
		field := &form.Fields[i]
		value := FieldValue(*field, entry)

		if field.IsChoiceBased() {
			prior := value.Items
			if value.Kind != model.KindChoices {
				prior = strings.Split(value.Text, ",")
			}
			for c := range field.Choices {
				if slices.Contains(prior, field.Choices[c].Value) {
					field.Choices[c].IsSelected = true
				}
			}
			continue
		}

		field.DefaultValue = value.String()
	}

	return form
}

// FieldValue collects every stored input of field. A single input yields a
// text value, several inputs a list of choices.
func FieldValue(field model.Field, entry *model.Entry) model.FieldValue {
	if entry == nil {
		return model.TextValue("")
	}

	values := entry.FieldInputs(field.ID)
	switch len(values) {
	case 0:
		return model.TextValue("")
	case 1:
		return model.TextValue(values[0])
	default:
		return model.ChoicesValue(values...)
	}
}

// FieldValues decodes entryID into per-field values ready to feed the form
// renderer. Existing uploads are registered on the request so they are offered
// for retention, without replacing uploads already tracked for an input.
func (e *Editor) FieldValues(ctx context.Context, s *Session, formID, entryID int64) map[int]model.FieldValue {
	values := make(map[int]model.FieldValue)

	form, err := e.forms.GetForm(ctx, formID)
	if err != nil {
		e.logger.Warn("load form for field values failed", "form_id", formID, "error", err)
		return values
	}
	entry, err := e.entries.GetEntry(ctx, entryID)
	if err != nil {
		e.logger.Warn("load entry for field values failed", "entry_id", entryID, "error", err)
		return values
	}

	markers, _ := forms.ParseUploadedFiles(s.req.Post(forms.FieldUploadedFiles))

	for _, field := range form.Fields {
		value := FieldValue(field, entry)
		values[field.ID] = value
		raw := entry.Values[strconv.Itoa(field.ID)]

		switch field.Type {
		case model.FieldList:
			if items, rows, ok := model.DecodeListRows(raw); ok {
				values[field.ID] = model.FieldValue{Kind: model.KindList, Items: items, Rows: rows}
			}
		case model.FieldCheckbox:
			if value.Kind == model.KindText {
				values[field.ID] = model.ChoicesValue(value.Text)
			}
		case model.FieldNumber:
			if field.NumberFormat != "" {
				values[field.ID] = model.TextValue(FormatNumber(raw, field.NumberFormat))
			} else {
				values[field.ID] = model.TextValue(raw)
			}
		case model.FieldMultiselect:
			if items, ok := model.DecodeJSONList(raw); ok {
				values[field.ID] = model.ChoicesValue(items...)
			}
		case model.FieldFileUpload:
			inputName := field.InputName()

			var files []string
			if field.MultipleFiles {
				files, _ = model.DecodeJSONList(raw)
			} else if raw != "" {
				files = []string{raw}
			}

			// The current submission may have removed the files in the browser.
			if marker, tracked := markers[inputName]; tracked && !forms.IsRetained(marker) {
				files = nil
			}

			kept := make([]string, 0, len(files))
			for _, file := range files {
				if base := path.Base(file); base != "." && base != "/" {
					kept = append(kept, base)
				}
			}

			values[field.ID] = model.FilesValue(kept...)
			if len(kept) > 0 {
				s.req.TrackUpload(formID, inputName, forms.TrackedUpload{Files: kept, Multiple: field.MultipleFiles})
			}
		}
	}

	return values
}

// FormatNumber renders a stored number in the field's display format.
// Values that are not numbers are returned unchanged.
func FormatNumber(raw string, format model.NumberFormat) string {
	raw = strings.TrimSpace(raw)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}

	decimals := 0
	if idx := strings.IndexByte(raw, '.'); idx >= 0 {
		decimals = len(raw) - idx - 1
	}

	switch format {
	case model.NumberDecimalComma:
		p := message.NewPrinter(language.German)
		return p.Sprint(number.Decimal(v, number.NoSeparator(), number.MinFractionDigits(decimals), number.MaxFractionDigits(decimals)))
	case model.NumberCurrency:
		p := message.NewPrinter(language.English)
		return "$" + p.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	default:
		p := message.NewPrinter(language.English)
		return p.Sprint(number.Decimal(v, number.NoSeparator(), number.MinFractionDigits(decimals), number.MaxFractionDigits(decimals)))
	}
}
