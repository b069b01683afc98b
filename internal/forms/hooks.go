package forms

import (
	"context"
	"sort"

	"go-form-editor/internal/model"
)

// AllForms scopes a stage to every form.
const AllForms int64 = 0

// StageFunc transforms the value flowing through a pipeline.
type StageFunc[T any] func(ctx context.Context, in T) T

type stage[T any] struct {
	name     string
	formID   int64
	priority int
	seq      int
	once     bool
	fn       StageFunc[T]
}

// Pipeline is an ordered chain of named stages for one extension point. Lower
// priorities run first; equal priorities run in registration order. A Pipeline
// belongs to a single request and is not safe for concurrent use.
type Pipeline[T any] struct {
	stages []stage[T]
	seq    int
}

// Add registers fn under name for formID (AllForms for every form). Adding the
// same name and form again replaces the earlier stage.
func (p *Pipeline[T]) Add(name string, formID int64, priority int, fn StageFunc[T]) {
	p.add(stage[T]{name: name, formID: formID, priority: priority, fn: fn})
}

// AddOnce registers a stage that is dropped after it has run once.
func (p *Pipeline[T]) AddOnce(name string, formID int64, priority int, fn StageFunc[T]) {
	p.add(stage[T]{name: name, formID: formID, priority: priority, once: true, fn: fn})
}

func (p *Pipeline[T]) add(s stage[T]) {
	p.seq++
	s.seq = p.seq

	for i := range p.stages {
		if p.stages[i].name == s.name && p.stages[i].formID == s.formID {
			p.stages[i] = s
			return
		}
	}

	p.stages = append(p.stages, s)
}

func (p *Pipeline[T]) Has(name string, formID int64) bool {
	for _, s := range p.stages {
		if s.name == name && s.formID == formID {
			return true
		}
	}

	return false
}

func (p *Pipeline[T]) Len() int {
	return len(p.stages)
}

// Run passes in through every stage registered for formID or AllForms.
func (p *Pipeline[T]) Run(ctx context.Context, formID int64, in T) T {
	if p == nil || len(p.stages) == 0 {
		return in
	}

	ordered := make([]stage[T], 0, len(p.stages))
	for _, s := range p.stages {
		if s.formID == AllForms || s.formID == formID {
			ordered = append(ordered, s)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority < ordered[j].priority
		}
		return ordered[i].seq < ordered[j].seq
	})

	for _, s := range ordered {
		if s.once {
			p.remove(s.name, s.formID)
		}
		in = s.fn(ctx, in)
	}

	return in
}

func (p *Pipeline[T]) remove(name string, formID int64) {
	for i := range p.stages {
		if p.stages[i].name == name && p.stages[i].formID == formID {
			p.stages = append(p.stages[:i], p.stages[i+1:]...)
			return
		}
	}
}

type FormTagArgs struct {
	Tag  string
	Form *model.Form
}

// EntryIDArgs carries the id the save step will write to. nil creates a new entry.
type EntryIDArgs struct {
	EntryID *int64
	Form    *model.Form
}

type SubmissionArgs struct {
	Entry *model.Entry
	Form  *model.Form
}

type NotificationArgs struct {
	Disabled     bool
	Notification model.Notification
	Form         *model.Form
	Entry        *model.Entry
}

// ConfirmationResult is what the visitor sees after submitting: either a
// message or a redirect target.
type ConfirmationResult struct {
	Message  string `json:"message,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func (r ConfirmationResult) IsZero() bool {
	return r.Message == "" && r.Redirect == ""
}

type ConfirmationArgs struct {
	Result ConfirmationResult
	Form   *model.Form
	Entry  *model.Entry
	AJAX   bool
}

// Hooks groups the extension points of one request.
type Hooks struct {
	PreRender           Pipeline[*model.Form]
	FormTag             Pipeline[FormTagArgs]
	PreProcess          Pipeline[*model.Form]
	EntryIDPreSave      Pipeline[EntryIDArgs]
	AfterSubmission     Pipeline[SubmissionArgs]
	DisableNotification Pipeline[NotificationArgs]
	Confirmation        Pipeline[ConfirmationArgs]
}

func NewHooks() *Hooks {
	return &Hooks{}
}
