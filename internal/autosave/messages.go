package autosave

import (
	"strings"

	"pocket-notes/internal/api"
)

const (
	msgSaveFailed   = "Failed to save note"
	msgTitleTooLong = "Title is too long (max 255 characters)"
	msgDeleted      = "Note deleted"
	msgDeleteFailed = "Failed to delete note"
)

// SaveErrorMessage turns a failed save into the text shown to the user.
// Field errors win over the generic detail.
func SaveErrorMessage(err error) string {
	apiErr, ok := api.AsError(err)
	if !ok {
		return msgSaveFailed
	}
	if msg := apiErr.FieldMessage("title"); msg != "" {
		if strings.Contains(msg, "255 characters") {
			return msgTitleTooLong
		}
		return "Title: " + msg
	}
	if msg := apiErr.FieldMessage("content"); msg != "" {
		return "Content: " + msg
	}
	if apiErr.Detail != "" {
		return apiErr.Detail
	}
	return msgSaveFailed
}
