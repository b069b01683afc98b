package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-form-editor/internal/model"
)

func testForm() *model.Form {
	return &model.Form{
		ID:    12,
		Title: "Profile & Settings",
		Fields: []model.Field{
			{ID: 1, Label: "Email", Type: model.FieldEmail},
			{ID: 3, Label: "Colors", Type: model.FieldCheckbox, Inputs: []model.Input{{ID: "3.1"}, {ID: "3.2"}, {ID: "3.3"}}},
			{ID: 5, Label: "Name", Type: model.FieldName, Inputs: []model.Input{{ID: "5.3"}, {ID: "5.6"}}},
			{ID: 7, Label: "Tags", Type: model.FieldMultiselect},
			{ID: 8, Label: "Rows", Type: model.FieldList},
			{ID: 9, Label: "Token", Type: model.FieldHidden},
		},
	}
}

func testEntry() *model.Entry {
	return &model.Entry{
		ID:          100,
		FormID:      12,
		DateCreated: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
		SourceURL:   "https://example.com/profile",
		Values: map[string]string{
			"1":   "a@example.com",
			"3.1": "red",
			"3.2": "",
			"3.3": "blue",
			"5.3": "Ada",
			"5.6": "Lovelace",
			"7":   `["x","y"]`,
			"8":   `[["a","b"],["c","d"]]`,
			"9":   "secret",
		},
	}
}

func TestAutop(t *testing.T) {
	t.Parallel()

	t.Run("wraps paragraphs and line breaks", func(t *testing.T) {
		require.Equal(t, "<p>Thanks!<br />\nSee you</p>\n<p>Bye</p>", Autop("Thanks!\r\nSee you\n\n  \nBye"))
	})

	t.Run("keeps block level markup", func(t *testing.T) {
		require.Equal(t, "<div>x</div>\n<p>y</p>", Autop("<div>x</div>\n\ny"))
	})

	t.Run("blank input", func(t *testing.T) {
		require.Equal(t, "", Autop(" \n\t "))
	})
}

func TestReplaceVariables(t *testing.T) {
	t.Parallel()

	form := testForm()
	entry := testEntry()

	t.Run("static tags", func(t *testing.T) {
		out := ReplaceVariables("{form_title} #{form_id}/{entry_id} on {date_created}", form, entry)
		require.Equal(t, "Profile &amp; Settings #12/100 on 03/04/2026", out)
	})

	t.Run("field tags", func(t *testing.T) {
		require.Equal(t, "a@example.com", ReplaceVariables("{Email:1}", form, entry))
		require.Equal(t, "red, blue", ReplaceVariables("{:3}", form, entry))
		require.Equal(t, "Ada Lovelace", ReplaceVariables("{Name:5}", form, entry))
		require.Equal(t, "Lovelace", ReplaceVariables("{Last:5.6}", form, entry))
		require.Equal(t, "x, y", ReplaceVariables("{Tags:7}", form, entry))
		require.Equal(t, "a | b, c | d", ReplaceVariables("{Rows:8}", form, entry))
	})

	t.Run("leaves unknown tags", func(t *testing.T) {
		require.Equal(t, "{nope} {Missing:99}", ReplaceVariables("{nope} {Missing:99}", form, entry))
	})

	t.Run("escapes values", func(t *testing.T) {
		e := testEntry()
		e.Values["1"] = "<b>x</b>"
		require.Equal(t, "&lt;b&gt;x&lt;/b&gt;", ReplaceVariables("{Email:1}", form, e))
	})

	t.Run("all fields skips hidden and empty", func(t *testing.T) {
		out := ReplaceVariables("{all_fields}", form, entry)
		require.Contains(t, out, "<th>Email</th><td>a@example.com</td>")
		require.NotContains(t, out, "secret")
	})

	t.Run("without entry", func(t *testing.T) {
		require.Equal(t, "[]", ReplaceVariables("[{Email:1}]", form, nil))
	})
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	reg.Register("hello", func(_ context.Context, _ string, attrs map[string]string) (string, error) {
		return "Hello " + attrs["name"], nil
	})
	reg.Register("broken", func(_ context.Context, _ string, _ map[string]string) (string, error) {
		return "", errors.New("boom")
	})

	t.Run("renders registered shortcodes", func(t *testing.T) {
		out := reg.Do(context.Background(), `<p>[hello name="Ada"] and [HELLO NAME='Bob']</p>`)
		require.Equal(t, "<p>Hello Ada and Hello Bob</p>", out)
	})

	t.Run("keeps unknown and failing shortcodes", func(t *testing.T) {
		out := reg.Do(context.Background(), `[other x=1] [broken]`)
		require.Equal(t, `[other x=1] [broken]`, out)
	})

	t.Run("nil registry", func(t *testing.T) {
		var r *Registry
		require.Equal(t, "[hello]", r.Do(context.Background(), "[hello]"))
	})
}

func TestParseAttrs(t *testing.T) {
	t.Parallel()

	attrs := ParseAttrs(` id="12" Editable=true title='no' confirmation="Thanks, {Email:1}!"`)
	require.Equal(t, map[string]string{
		"id":           "12",
		"editable":     "true",
		"title":        "no",
		"confirmation": "Thanks, {Email:1}!",
	}, attrs)
}
