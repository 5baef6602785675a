package events

import "github.com/KareemAyyad/rekordbox-dj/internal/domain"

// Type tags the variant of a progress event.
type Type string

const (
	TypeQueueStart   Type = "queue-start"
	TypeItemStart    Type = "item-start"
	TypeItemProgress Type = "item-progress"
	TypeUploadNeeded Type = "item-upload-needed"
	TypeItemDone     Type = "item-done"
	TypeItemError    Type = "item-error"
	TypeWarning      Type = "warning"
	TypeQueueDone    Type = "queue-done"
)

// Event is one immutable progress/outcome notification. Item-scoped kinds
// carry ItemID and URL; the rest of the fields are populated per type.
type Event struct {
	Type  Type   `json:"type"`
	JobID string `json:"job_id"`

	ItemID string       `json:"item_id,omitempty"`
	URL    string       `json:"url,omitempty"`
	Stage  domain.Stage `json:"stage,omitempty"`

	// Title accompanies item-upload-needed so the UI can label the item.
	Title string `json:"title,omitempty"`

	// Message carries the error text for item-error / item-upload-needed
	// and the description for warning events.
	Message string `json:"message,omitempty"`

	// Batch summary fields for queue-start.
	Count    int    `json:"count,omitempty"`
	InboxDir string `json:"inbox_dir,omitempty"`
	Mode     string `json:"mode,omitempty"`
}
