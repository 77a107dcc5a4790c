package intake

import "time"

// Status enumerates the lifecycle states of a commission request. Only the
// initial state is set here; later transitions belong to the fulfillment
// workflow.
type Status string

// StatusRequested is the state stamped on every newly submitted request.
const StatusRequested Status = "requested"

// CommissionRequest is one visitor submission in the "requests" collection.
// FileURL is nil when attachment hosting failed or was not configured;
// ResultURL is filled in later by fulfillment.
type CommissionRequest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Social    string    `json:"social"`
	Style     string    `json:"style"`
	Notes     string    `json:"notes"`
	FileName  string    `json:"fileName"`
	FileURL   *string   `json:"fileUrl"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	ResultURL *string   `json:"resultUrl"`
}

// Submission carries the parsed multipart form of one intake attempt.
type Submission struct {
	Name     string
	Email    string
	Social   string
	Style    string
	Notes    string
	FileName string
	File     []byte
}
