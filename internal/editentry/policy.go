package editentry

import (
	"context"
	"fmt"
	"strings"

	"go-form-editor/internal/model"
)

type OwnershipMode string

const (
	// OwnershipStrict grants edits only to the actor that created the entry.
	OwnershipStrict OwnershipMode = "strict"
	// OwnershipLegacy grants every edit and leaves the decision to policy
	// filters, matching installations that relied on that behaviour.
	OwnershipLegacy OwnershipMode = "legacy"
)

func ParseOwnershipMode(v string) (OwnershipMode, error) {
	switch OwnershipMode(strings.ToLower(strings.TrimSpace(v))) {
	case "", OwnershipStrict:
		return OwnershipStrict, nil
	case OwnershipLegacy:
		return OwnershipLegacy, nil
	default:
		return "", fmt.Errorf("unknown ownership mode %q", v)
	}
}

// PolicyFilter receives the decision so far and returns the new one.
type PolicyFilter func(ctx context.Context, canEdit bool, entry *model.Entry, actor model.Actor) bool

// AllowRoles lets actors with any of roles edit every entry.
func AllowRoles(roles ...string) PolicyFilter {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		if role = strings.ToLower(strings.TrimSpace(role)); role != "" {
			allowed[role] = true
		}
	}

	return func(_ context.Context, canEdit bool, _ *model.Entry, actor model.Actor) bool {
		if canEdit {
			return true
		}
		return !actor.IsAnonymous() && allowed[strings.ToLower(actor.Role)]
	}
}

// EntryRef names an entry either by id or by an already loaded record.
type EntryRef struct {
	id    int64
	entry *model.Entry
}

func ByID(id int64) EntryRef {
	return EntryRef{id: id}
}

func Loaded(entry *model.Entry) EntryRef {
	return EntryRef{entry: entry}
}

// CanUserEditEntry reports whether actor may edit the referenced entry. An
// entry that cannot be resolved is never editable.
func (e *Editor) CanUserEditEntry(ctx context.Context, actor model.Actor, ref EntryRef) bool {
	entry := ref.entry
	if entry == nil {
		if ref.id <= 0 {
			return false
		}

		loaded, err := e.entries.GetEntry(ctx, ref.id)
		if err != nil || loaded == nil {
			return false
		}
		entry = loaded
	}

	canEdit := e.ownerDecision(actor, entry)
	for _, filter := range e.policyFilters {
		canEdit = filter(ctx, canEdit, entry, actor)
	}

	return canEdit
}

func (e *Editor) ownerDecision(actor model.Actor, entry *model.Entry) bool {
	if e.ownership == OwnershipLegacy {
		return true
	}

	return !actor.IsAnonymous() && actor.ID == entry.CreatedBy
}
