package dispatch

// State of one group in a run.
type State string

const (
	StatePreview   State = "preview"
	StateConfirmed State = "confirmed"
	StateDeclined  State = "declined"
	StateSending   State = "sending"
	StateDone      State = "done"
)

// Failure is one recipient that did not get the invoice.
type Failure struct {
	Number    string `json:"number"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason"`
}

type GroupReport struct {
	Index    int       `json:"index"`
	Key      string    `json:"key,omitempty"`
	Size     int       `json:"size"`
	State    State     `json:"state"`
	Declined bool      `json:"declined"`
	Sent     []string  `json:"sent"`
	Skipped  []string  `json:"skipped"`
	Failures []Failure `json:"failures"`
}

// Report is what a run did, group by group in the order they were offered.
type Report struct {
	DryRun bool          `json:"dry_run"`
	Groups []GroupReport `json:"groups"`
}

// Failed counts failed recipients over all groups.
func (r *Report) Failed() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Failures)
	}

	return n
}

// Sent counts invoices handed to the relay, or that would have been in a dry run.
func (r *Report) Sent() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Sent)
	}

	return n
}
