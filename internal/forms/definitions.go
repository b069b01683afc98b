package forms

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go-form-editor/internal/model"

	"gopkg.in/yaml.v3"
)

type definitionFile struct {
	Forms []model.Form `yaml:"forms"`
}

// LoadDefinitions reads form definitions from a YAML file.
func LoadDefinitions(path string) ([]model.Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form definitions: %w", err)
	}

	return ParseDefinitions(bytes.NewReader(data))
}

func ParseDefinitions(r io.Reader) ([]model.Form, error) {
	var file definitionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse form definitions: %w", err)
	}

	seen := make(map[int64]bool, len(file.Forms))
	for i := range file.Forms {
		form := &file.Forms[i]
		if err := validateDefinition(form); err != nil {
			return nil, fmt.Errorf("form %d (%q): %w", form.ID, form.Title, err)
		}
		if seen[form.ID] {
			return nil, fmt.Errorf("form %d: duplicate id", form.ID)
		}
		seen[form.ID] = true
	}

	return file.Forms, nil
}

func validateDefinition(form *model.Form) error {
	if form.ID <= 0 {
		return fmt.Errorf("%w: id must be positive", model.ErrInvalidInput)
	}
	if form.Title == "" {
		return fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}

	fieldIDs := make(map[int]bool, len(form.Fields))
	for _, field := range form.Fields {
		if field.ID <= 0 {
			return fmt.Errorf("%w: field id must be positive", model.ErrInvalidInput)
		}
		if fieldIDs[field.ID] {
			return fmt.Errorf("%w: duplicate field id %d", model.ErrInvalidInput, field.ID)
		}
		fieldIDs[field.ID] = true

		if !knownFieldType(field.Type) {
			return fmt.Errorf("%w: field %d has unknown type %q", model.ErrInvalidInput, field.ID, field.Type)
		}
	}

	return nil
}

func knownFieldType(t model.FieldType) bool {
	switch t {
	case model.FieldText, model.FieldTextarea, model.FieldEmail, model.FieldHidden,
		model.FieldCheckbox, model.FieldRadio, model.FieldSelect, model.FieldNumber,
		model.FieldMultiselect, model.FieldList, model.FieldFileUpload,
		model.FieldName, model.FieldAddress:
		return true
	}
	return false
}
