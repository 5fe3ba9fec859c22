package services

import (
	"species-encyclopedia-api/models"
)

// Actor identifies the authenticated caller of a lifecycle operation.
type Actor struct {
	UserID uint
	RoleID int
}

// IsReviewer reports whether the actor carries reviewer capability.
func (a Actor) IsReviewer() bool {
	return models.IsReviewerRole(a.RoleID)
}

// Action is a requested lifecycle transition or mutation.
type Action string

const (
	ActionUpdate          Action = "update"
	ActionDelete          Action = "delete"
	ActionSubmit          Action = "submit"
	ActionResubmit        Action = "resubmit"
	ActionRequestRevision Action = "request_revision"
	ActionReviewerEdit    Action = "reviewer_edit"
	ActionReview          Action = "review"
)

// CanPerform is the single capability check backing every transition guard.
// It returns nil when the actor may perform the action on the species in its
// current state, or a Forbidden/InvalidState domain error otherwise.
//
// Ownership and role violations win over state violations, so a caller who
// was never allowed to touch the record sees Forbidden regardless of status.
func CanPerform(actor Actor, sp *models.Species, action Action) error {
	switch action {
	case ActionUpdate, ActionDelete, ActionSubmit:
		if sp.CreatedBy != actor.UserID {
			return Forbidden("only the species owner may " + string(action) + " it")
		}
		if sp.Status != models.SpeciesStatusDraft {
			return InvalidState("species must be a draft to " + string(action) + ", current status is " + sp.Status)
		}
		return nil

	case ActionResubmit:
		if sp.CreatedBy != actor.UserID {
			return Forbidden("only the species owner may resubmit it")
		}
		if sp.Status != models.SpeciesStatusRejected {
			return InvalidState("only rejected species can be resubmitted, current status is " + sp.Status)
		}
		return nil

	case ActionRequestRevision:
		if sp.Status != models.SpeciesStatusPublished {
			return InvalidState("revisions can only be requested on published species, current status is " + sp.Status)
		}
		return nil

	case ActionReviewerEdit:
		if sp.CreatedBy == actor.UserID {
			return Forbidden("owners edit their drafts directly, not through reviewer edits")
		}
		if !actor.IsReviewer() {
			return Forbidden("reviewer role required")
		}
		if sp.Status != models.SpeciesStatusInReview {
			return InvalidState("reviewer edits are only allowed while the species is in review")
		}
		return nil

	case ActionReview:
		if sp.CreatedBy == actor.UserID {
			return Forbidden("you cannot review your own submission")
		}
		if !actor.IsReviewer() {
			return Forbidden("reviewer role required")
		}
		if sp.Status != models.SpeciesStatusInReview {
			return InvalidState("species is not in review, current status is " + sp.Status)
		}
		return nil
	}

	return Forbidden("unknown action " + string(action))
}
