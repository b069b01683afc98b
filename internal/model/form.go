package model

import (
	"strconv"
	"time"
)

type FieldType string

const (
	FieldText        FieldType = "text"
	FieldTextarea    FieldType = "textarea"
	FieldEmail       FieldType = "email"
	FieldHidden      FieldType = "hidden"
	FieldCheckbox    FieldType = "checkbox"
	FieldRadio       FieldType = "radio"
	FieldSelect      FieldType = "select"
	FieldNumber      FieldType = "number"
	FieldMultiselect FieldType = "multiselect"
	FieldList        FieldType = "list"
	FieldFileUpload  FieldType = "fileupload"
	FieldName        FieldType = "name"
	FieldAddress     FieldType = "address"
)

type NumberFormat string

const (
	NumberDecimalDot   NumberFormat = "decimal_dot"
	NumberDecimalComma NumberFormat = "decimal_comma"
	NumberCurrency     NumberFormat = "currency"
)

type ConfirmationType string

const (
	ConfirmationMessage  ConfirmationType = "message"
	ConfirmationRedirect ConfirmationType = "redirect"
	ConfirmationPage     ConfirmationType = "page"
)

type Choice struct {
	Text       string `json:"text" yaml:"text"`
	Value      string `json:"value" yaml:"value"`
	IsSelected bool   `json:"isSelected,omitempty" yaml:"isSelected,omitempty"`
}

// Input is a sub-input of a composite field. ID has the "<field>.<n>" form.
type Input struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
}

type Field struct {
	ID            int          `json:"id" yaml:"id"`
	Label         string       `json:"label" yaml:"label"`
	Type          FieldType    `json:"type" yaml:"type"`
	IsRequired    bool         `json:"isRequired,omitempty" yaml:"isRequired,omitempty"`
	Choices       []Choice     `json:"choices,omitempty" yaml:"choices,omitempty"`
	Inputs        []Input      `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	DefaultValue  string       `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	MultipleFiles bool         `json:"multipleFiles,omitempty" yaml:"multipleFiles,omitempty"`
	NumberFormat  NumberFormat `json:"numberFormat,omitempty" yaml:"numberFormat,omitempty"`
}

// InputName is the request parameter carrying the field's value.
func (f Field) InputName() string {
	return "input_" + strconv.Itoa(f.ID)
}

func (f Field) IsChoiceBased() bool {
	return f.Type == FieldCheckbox || f.Type == FieldRadio
}

type Confirmation struct {
	ID                string           `json:"id,omitempty" yaml:"id,omitempty"`
	Name              string           `json:"name,omitempty" yaml:"name,omitempty"`
	Type              ConfirmationType `json:"type" yaml:"type"`
	Message           string           `json:"message,omitempty" yaml:"message,omitempty"`
	URL               string           `json:"url,omitempty" yaml:"url,omitempty"`
	IsDefault         bool             `json:"isDefault,omitempty" yaml:"isDefault,omitempty"`
	DisableAutoformat bool             `json:"disableAutoformat,omitempty" yaml:"disableAutoformat,omitempty"`
}

type Notification struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	To       string `json:"to" yaml:"to"`
	Subject  string `json:"subject" yaml:"subject"`
	Message  string `json:"message" yaml:"message"`
	IsActive bool   `json:"isActive" yaml:"isActive"`
}

type Form struct {
	ID            int64          `json:"id" yaml:"id"`
	Title         string         `json:"title" yaml:"title"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Fields        []Field        `json:"fields" yaml:"fields"`
	Confirmations []Confirmation `json:"confirmations,omitempty" yaml:"confirmations,omitempty"`
	Notifications []Notification `json:"notifications,omitempty" yaml:"notifications,omitempty"`
	IsActive      bool           `json:"isActive" yaml:"isActive"`
	CreatedAt     time.Time      `json:"createdAt" yaml:"-"`
}

// Clone returns a deep copy so per-request rendering never touches the stored schema.
func (f *Form) Clone() *Form {
	if f == nil {
		return nil
	}

	out := *f
	out.Fields = make([]Field, len(f.Fields))
	for i, field := range f.Fields {
		field.Choices = append([]Choice(nil), field.Choices...)
		field.Inputs = append([]Input(nil), field.Inputs...)
		out.Fields[i] = field
	}
	out.Confirmations = append([]Confirmation(nil), f.Confirmations...)
	out.Notifications = append([]Notification(nil), f.Notifications...)

	return &out
}

func (f *Form) Field(id int) (*Field, bool) {
	for i := range f.Fields {
		if f.Fields[i].ID == id {
			return &f.Fields[i], true
		}
	}

	return nil, false
}

type FormChoice struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
