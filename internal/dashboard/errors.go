package dashboard

import (
	"errors"

	"chemviz-dashboard/pkg/chemapi"
)

// Messages shown in the widgets' inline banners.
const (
	MsgLoadFailed     = "Failed to load data. Please try uploading a file."
	MsgCSVOnly        = "Only .csv files are supported."
	MsgUploadFailed   = "Upload failed."
	MsgDeleteFailed   = "Failed to delete dataset."
	MsgReportFailed   = "PDF generation failed."
	MsgHistoryFailed  = "Failed to load upload history."
	MsgDetailFailed   = "Failed to load dataset details."
	MsgNoFileSelected = "No file selected."
)

// ValidationError is a local rejection made before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// withBackendMessage appends the backend's own explanation, when there is
// one, to a generic banner message.
func withBackendMessage(prefix string, err error) string {
	var reqErr *chemapi.RequestError
	if errors.As(err, &reqErr) {
		if msg := reqErr.ErrorField(); msg != "" {
			return prefix + " " + msg
		}
	}
	return prefix
}
