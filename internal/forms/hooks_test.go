package forms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipeline(t *testing.T) {
	ctx := context.Background()
	appendStage := func(s string) StageFunc[string] {
		return func(_ context.Context, in string) string { return in + s }
	}

	t.Run("orders by priority then registration", func(t *testing.T) {
		var p Pipeline[string]
		p.Add("c", AllForms, 20, appendStage("c"))
		p.Add("a", AllForms, 10, appendStage("a"))
		p.Add("b", AllForms, 20, appendStage("b"))

		assert.Equal(t, "acb", p.Run(ctx, 1, ""))
	})

	t.Run("scopes stages to a form", func(t *testing.T) {
		var p Pipeline[string]
		p.Add("all", AllForms, 10, appendStage("x"))
		p.Add("only", 12, 10, appendStage("y"))

		assert.Equal(t, "xy", p.Run(ctx, 12, ""))
		assert.Equal(t, "x", p.Run(ctx, 13, ""))
	})

	t.Run("same name and form replaces", func(t *testing.T) {
		var p Pipeline[string]
		p.Add("s", 12, 10, appendStage("old"))
		p.Add("s", 12, 10, appendStage("new"))
		p.Add("s", 13, 10, appendStage("other"))

		assert.Equal(t, 2, p.Len())
		assert.Equal(t, "new", p.Run(ctx, 12, ""))
	})

	t.Run("once stages run a single time", func(t *testing.T) {
		var p Pipeline[string]
		p.AddOnce("s", 12, 10, appendStage("once"))

		assert.True(t, p.Has("s", 12))
		assert.Equal(t, "once", p.Run(ctx, 12, ""))
		assert.False(t, p.Has("s", 12))
		assert.Equal(t, "", p.Run(ctx, 12, ""))
	})

	t.Run("nil pipeline passes through", func(t *testing.T) {
		var p *Pipeline[string]
		assert.Equal(t, "in", p.Run(ctx, 1, "in"))
	})
}

func TestIsRetained(t *testing.T) {
	for raw, want := range map[string]bool{
		`null`:                             false,
		`false`:                            false,
		`""`:                               false,
		`"0"`:                              false,
		`[]`:                               false,
		`"photo.png"`:                      true,
		`true`:                             true,
		`[{"uploaded_filename":"a.png"}]`: true,
	} {
		assert.Equal(t, want, IsRetained([]byte(raw)), raw)
	}
}

func TestRequest_TrackUploadFirstWriteWins(t *testing.T) {
	req := NewRequest(modelActor("7"), nil, "")

	assert.True(t, req.TrackUpload(12, "input_13", TrackedUpload{Files: []string{"new.png"}}))
	assert.False(t, req.TrackUpload(12, "input_13", TrackedUpload{Files: []string{"old.png"}}))

	upload, ok := req.TrackedUpload(12, "input_13")
	assert.True(t, ok)
	assert.Equal(t, []string{"new.png"}, upload.Files)
}
