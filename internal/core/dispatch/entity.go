package dispatch

import "pushdispatch.app/internal/ports"

// Kind tags a notification with the campaign or action that produced it
type Kind string

const (
	KindMorningTasks      Kind = "morning_tasks"
	KindAfternoonReminder Kind = "afternoon_reminder"
	KindEveningSummary    Kind = "evening_summary"
	KindHourlyReminder    Kind = "hourly_reminder"
	KindCustom            Kind = "custom"

	KindNoTreatment       Kind = "no_treatment"
	KindStartingSoon      Kind = "starting_soon"
	KindTreatmentComplete Kind = "treatment_complete"
)

func (k Kind) String() string {
	return string(k)
}

// Transport names the delivery path a device was reached through
type Transport string

const (
	TransportTokenPush Transport = "token-push"
	TransportRelayPush Transport = "relay-push"
	TransportNone      Transport = "none"
)

// Error codes set on outcomes that did not come from a transport
const (
	ErrorCodeNoTransport   = "no-transport"
	ErrorCodeTimeout       = "timeout"
	ErrorCodeMissingResult = "missing-result"
	ErrorCodePanic         = "transport-panic"
)

// Scope restricts a dispatch to some recipients. Empty scope means everyone.
type Scope struct {
	RecipientIDs     []string
	ContactAddresses []string
}

func (s Scope) IsEmpty() bool {
	return len(s.RecipientIDs) == 0 && len(s.ContactAddresses) == 0
}

func (s Scope) filter() ports.RegistrationFilter {
	return ports.RegistrationFilter{
		RecipientIDs:     s.RecipientIDs,
		ContactAddresses: s.ContactAddresses,
	}
}

// NotificationRequest is one logical notification to fan out
type NotificationRequest struct {
	Title    string
	Body     string
	Kind     Kind
	Metadata map[string]string
	Scope    Scope
}

func (r NotificationRequest) message() ports.PushMessage {
	data := make(map[string]string, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		data[k] = v
	}
	if _, ok := data["type"]; !ok && r.Kind != "" {
		data["type"] = r.Kind.String()
	}
	return ports.PushMessage{Title: r.Title, Body: r.Body, Data: data}
}

// Outcome is the result of one device attempt
type Outcome struct {
	Token     string    `json:"token"`
	Transport Transport `json:"transport"`
	Success   bool      `json:"success"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Dead      bool      `json:"-"`
}

// Summary aggregates the outcomes of one dispatch.
// Succeeded + Failed always equals Requested.
type Summary struct {
	ID         string    `json:"id,omitempty"`
	Requested  int       `json:"requested"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	DeadTokens []string  `json:"deadTokens"`
	Outcomes   []Outcome `json:"outcomes,omitempty"`
}

func newSummary(id string, outcomes []Outcome) *Summary {
	s := &Summary{
		ID:         id,
		Requested:  len(outcomes),
		DeadTokens: []string{},
		Outcomes:   outcomes,
	}
	for _, o := range outcomes {
		if o.Success {
			s.Succeeded++
			continue
		}
		s.Failed++
		if o.Dead {
			s.DeadTokens = append(s.DeadTokens, o.Token)
		}
	}
	return s
}

// RecipientSummary reports a scoped send for one requested recipient
type RecipientSummary struct {
	Recipient string   `json:"recipient"`
	Found     bool     `json:"found"`
	Summary   *Summary `json:"summary"`
}
