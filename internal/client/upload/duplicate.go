package upload

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/filedash/internal/client/models"
	"github.com/dmitrijs2005/filedash/internal/logging"
)

// Action is the user's answer to a duplicate-name conflict.
type Action string

const (
	ActionProceed   Action = "proceed"
	ActionOverwrite Action = "overwrite"
	ActionCancel    Action = "cancel"
)

// DuplicateDecision pairs the conflicting file (nil when none) with the
// chosen action.
type DuplicateDecision struct {
	Conflicting *models.FileMetadata
	Action      Action
}

// DecisionFunc asks the user what to do about existing. It should return
// promptly once ctx is done.
type DecisionFunc func(ctx context.Context, existing models.FileMetadata) (Action, error)

// Lister is the listing query the resolver runs.
type Lister interface {
	ListFiles(ctx context.Context, q models.ListQuery) (*models.FileList, error)
}

type Resolver struct {
	lister Lister
	logger logging.Logger
}

func NewResolver(lister Lister, logger logging.Logger) *Resolver {
	return &Resolver{lister: lister, logger: logger.With("module", "duplicate_resolver")}
}

// CheckDuplicate returns the user's file whose name equals filename
// ignoring case, or nil. Lookup failures are logged and reported as no
// duplicate; the check is advisory and the server enforces uniqueness.
func (r *Resolver) CheckDuplicate(ctx context.Context, filename string) *models.FileMetadata {
	list, err := r.lister.ListFiles(ctx, models.ListQuery{
		Filename: filename,
		PageSize: models.MaxPageSize,
	})
	if err != nil {
		r.logger.Warn(ctx, "duplicate check failed, continuing", "filename", filename, "error", err)
		return nil
	}

	for i := range list.Files {
		if strings.EqualFold(list.Files[i].Filename, filename) {
			f := list.Files[i]
			return &f
		}
	}
	return nil
}

// Resolve runs the check and, on conflict, asks decide. Anything other
// than an explicit overwrite cancels, and so does a nil decide.
func (r *Resolver) Resolve(ctx context.Context, filename string, decide DecisionFunc) (DuplicateDecision, error) {
	existing := r.CheckDuplicate(ctx, filename)
	if existing == nil {
		return DuplicateDecision{Action: ActionProceed}, nil
	}

	d := DuplicateDecision{Conflicting: existing, Action: ActionCancel}
	if decide == nil {
		return d, nil
	}

	action, err := decide(ctx, *existing)
	if err != nil {
		return d, err
	}
	if action == ActionOverwrite {
		d.Action = ActionOverwrite
	}
	return d, nil
}
