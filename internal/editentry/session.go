package editentry

import (
	"context"

	"go-form-editor/internal/forms"
	"go-form-editor/internal/model"
)

// Session holds the per-request state of the edit flow. It is created for one
// HTTP request and dropped with it; nothing in it outlives the request.
type Session struct {
	req *forms.Request

	uploads       map[string]model.PendingUpload
	uploadOrder   []string
	confirmations map[int64]string
	noted         map[int64]bool
	edited        map[int64]resolution

	recomputing bool
	installed   bool
}

type resolution struct {
	entryID int64
	ok      bool
}

func NewSession(req *forms.Request) *Session {
	if req == nil {
		req = forms.NewRequest(model.Actor{}, nil, "")
	}
	if req.Hooks == nil {
		req.Hooks = forms.NewHooks()
	}

	return &Session{
		req:           req,
		uploads:       make(map[string]model.PendingUpload),
		confirmations: make(map[int64]string),
		noted:         make(map[int64]bool),
		edited:        make(map[int64]resolution),
	}
}

func (s *Session) Request() *forms.Request {
	return s.req
}

func (s *Session) Actor() model.Actor {
	return s.req.Actor
}

// SetConfirmation stores the message shown after an edit of formID.
// The last call for a form wins.
func (s *Session) SetConfirmation(formID int64, message string) {
	s.confirmations[formID] = message
}

func (s *Session) Confirmation(formID int64) (string, bool) {
	msg, ok := s.confirmations[formID]
	return msg, ok
}

// PendingUploads returns staged uploads in the order they were staged.
func (s *Session) PendingUploads() []model.PendingUpload {
	out := make([]model.PendingUpload, 0, len(s.uploadOrder))
	for _, name := range s.uploadOrder {
		out = append(out, s.uploads[name])
	}
	return out
}

// stageUpload keeps at most one record per input name.
func (s *Session) stageUpload(u model.PendingUpload) {
	if _, exists := s.uploads[u.InputName]; !exists {
		s.uploadOrder = append(s.uploadOrder, u.InputName)
	}
	s.uploads[u.InputName] = u
}

func (s *Session) Recomputing() bool {
	return s.recomputing
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
