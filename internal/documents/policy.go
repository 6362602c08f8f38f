package documents

import (
	"docflow-backend/internal/shared/apperr"
	"docflow-backend/internal/shared/auth"
)

// CanView allows the owner and any admin.
func CanView(p auth.Principal, d Document) bool {
	return p.IsAdmin() || isOwner(p, d)
}

// CanEdit allows only the owner, and only before a decision is recorded.
func CanEdit(p auth.Principal, d Document) bool {
	return isOwner(p, d) && !d.Status.Decided()
}

// CanDelete allows admins always and owners until approval.
func CanDelete(p auth.Principal, d Document) bool {
	return p.IsAdmin() || (isOwner(p, d) && d.Status != StatusApproved)
}

func isOwner(p auth.Principal, d Document) bool {
	return p.UserID != "" && p.UserID == d.UploadedBy
}

func authorizeView(p auth.Principal, d Document) error {
	if !CanView(p, d) {
		return apperr.Forbidden("Access denied")
	}
	return nil
}

func authorizeEdit(p auth.Principal, d Document) error {
	if !isOwner(p, d) {
		return apperr.Forbidden("Access denied. You can only edit your own documents.")
	}
	if !CanEdit(p, d) {
		return apperr.Forbidden("Cannot edit document that has been approved or rejected")
	}
	return nil
}

func authorizeDelete(p auth.Principal, d Document) error {
	if CanDelete(p, d) {
		return nil
	}
	if !isOwner(p, d) {
		return apperr.Forbidden("Access denied. You can only delete your own documents.")
	}
	return apperr.Forbidden("Cannot delete approved document")
}

func authorizeReview(p auth.Principal) error {
	if !p.IsAdmin() {
		return apperr.Forbidden("Access denied. Admin privileges required.")
	}
	return nil
}
