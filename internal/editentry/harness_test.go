package editentry

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-form-editor/internal/content"
	"go-form-editor/internal/cryptox"
	"go-form-editor/internal/forms"
	"go-form-editor/internal/memstore"
	"go-form-editor/internal/model"
)

const (
	ownerID    = "7"
	strangerID = "9"
	avatarURL  = "https://files.test/uploads/12/avatar.png"
	permalink  = "https://example.com/profile"
)

var requestTime = time.Date(2026, 3, 4, 10, 15, 30, 0, time.UTC)

type fakeFiles struct{}

func (fakeFiles) SaveUpload(_ context.Context, formID int64, filename string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return fmt.Sprintf("https://files.test/uploads/%d/%s", formID, filename), nil
}

type countingNotifier struct {
	sent int
}

func (n *countingNotifier) Notify(context.Context, *model.Form, *model.Entry, model.Notification) error {
	n.sent++
	return nil
}

// failingNotes rejects every note while delegating the rest.
type failingNotes struct {
	*memstore.Store
}

func (failingNotes) AddNote(context.Context, model.Note) (model.Note, error) {
	return model.Note{}, errors.New("notes table unavailable")
}

type harness struct {
	store    *memstore.Store
	engine   *forms.Engine
	editor   *Editor
	cipher   *cryptox.SecretBox
	notifier *countingNotifier
}

func profileForm() *model.Form {
	return &model.Form{
		ID:       12,
		Title:    "Profile",
		IsActive: true,
		Fields: []model.Field{
			{ID: 1, Label: "Email", Type: model.FieldEmail},
			{ID: 3, Label: "Colors", Type: model.FieldCheckbox, Choices: []model.Choice{
				{Text: "Red", Value: "red"}, {Text: "Blue", Value: "blue"}, {Text: "Green", Value: "green"},
			}},
			{ID: 5, Label: "Size", Type: model.FieldRadio, Choices: []model.Choice{
				{Text: "S", Value: "s"}, {Text: "M", Value: "m"}, {Text: "Medium", Value: "m "},
			}},
			{ID: 8, Label: "Amount", Type: model.FieldNumber, NumberFormat: model.NumberDecimalComma},
			{ID: 9, Label: "Rows", Type: model.FieldList, Choices: []model.Choice{{Text: "A"}, {Text: "B"}}},
			{ID: 10, Label: "Tags", Type: model.FieldMultiselect, Choices: []model.Choice{
				{Text: "X", Value: "x"}, {Text: "Y", Value: "y"}, {Text: "Z", Value: "z"},
			}},
			{ID: 11, Label: "Name", Type: model.FieldName, Inputs: []model.Input{{ID: "11.3", Label: "First"}, {ID: "11.6", Label: "Last"}}},
			{ID: 13, Label: "Avatar", Type: model.FieldFileUpload},
			{ID: 14, Label: "Gallery", Type: model.FieldFileUpload, MultipleFiles: true},
		},
		Confirmations: []model.Confirmation{
			{ID: "default", Type: model.ConfirmationMessage, Message: "Default thanks", IsDefault: true},
		},
		Notifications: []model.Notification{
			{ID: "admin", Name: "Admin", To: "admin@example.com", IsActive: true},
		},
	}
}

func priorEntry() *model.Entry {
	return &model.Entry{
		ID:          100,
		FormID:      12,
		CreatedBy:   ownerID,
		DateCreated: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		Status:      model.EntryActive,
		Values: map[string]string{
			"1":    "ada@example.com",
			"3.1":  "red",
			"3.2":  "",
			"3.3":  "green",
			"5":    "m",
			"8":    "1234.5",
			"9":    `[["a,1","b"],["c","d"]]`,
			"10":   `["x","z"]`,
			"11.3": "Ada",
			"11.6": "Lovelace",
			"13":   avatarURL,
			"14":   `["https://files.test/g1.png","https://files.test/g2.png"]`,
		},
	}
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	ctx := context.Background()

	store := memstore.New()
	require.NoError(t, store.UpsertForm(ctx, profileForm()))
	require.NoError(t, store.UpsertForm(ctx, &model.Form{ID: 13, Title: "Other", IsActive: true}))

	cipher, err := cryptox.NewSecretBox("test-secret-with-enough-bytes")
	require.NoError(t, err)

	shortcodes := content.NewRegistry(nil)
	notifier := &countingNotifier{}
	engine := forms.NewEngine(store, fakeFiles{}, notifier, shortcodes, nil, nil)

	return &harness{
		store:    store,
		engine:   engine,
		editor:   New(store, store, engine, cipher, shortcodes, opts),
		cipher:   cipher,
		notifier: notifier,
	}
}

func (h *harness) seedPrior(t *testing.T) *model.Entry {
	t.Helper()

	entry := priorEntry()
	require.NoError(t, h.store.PutEntry(context.Background(), entry))
	return entry
}

func session(actorID string, post url.Values) *Session {
	actor := model.Actor{ID: actorID}
	if actorID != "" {
		actor.DisplayName = "User " + actorID
	}

	req := forms.NewRequest(actor, post, permalink)
	req.Now = requestTime

	return NewSession(req)
}

var hiddenValue = regexp.MustCompile(`name="([^"]+)" value="([^"]*)"`)

// hiddenFields extracts name/value pairs of the inputs in markup.
func hiddenFields(markup string) map[string]string {
	out := map[string]string{}
	for _, m := range hiddenValue.FindAllStringSubmatch(markup, -1) {
		out[m[1]] = html.UnescapeString(m[2])
	}
	return out
}
