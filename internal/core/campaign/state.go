package campaign

import (
	"context"
	"fmt"

	"pushdispatch.app/internal/ports"
)

// StateLoader builds a TreatmentState from the treatment API
type StateLoader struct {
	api ports.TreatmentAPI
}

func NewStateLoader(api ports.TreatmentAPI) *StateLoader {
	return &StateLoader{api: api}
}

// Load fetches assignments and, for the first active protocol that is not yet
// complete, today's check-in. Any upstream failure is returned; callers treat
// it as unknown state.
func (l *StateLoader) Load(ctx context.Context, recipientID string) (*TreatmentState, error) {
	assignments, err := l.api.GetProtocolAssignments(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("get protocol assignments: %w", err)
	}
	if assignments == nil {
		return nil, fmt.Errorf("get protocol assignments: empty response")
	}

	state := &TreatmentState{
		ActiveProtocols:  assignments.Active,
		PendingProtocols: assignments.Pending,
	}
	if len(assignments.Active) == 0 {
		return state, nil
	}

	active := assignments.Active[0]
	state.ProgressPercent = active.Progress
	if active.Progress >= 100 {
		return state, nil
	}

	checkin, err := l.api.GetDailyCheckin(ctx, active.ID)
	if err != nil {
		return nil, fmt.Errorf("get daily check-in for protocol %s: %w", active.ID, err)
	}
	if checkin == nil {
		return nil, fmt.Errorf("get daily check-in for protocol %s: empty response", active.ID)
	}

	answered := make(map[string]bool, len(checkin.Responses))
	for _, r := range checkin.Responses {
		answered[r.QuestionID] = true
	}

	state.CheckedInToday = checkin.HasCheckinToday
	state.Tasks = make([]Task, 0, len(checkin.Questions))
	for _, q := range checkin.Questions {
		state.Tasks = append(state.Tasks, Task{ID: q.ID, Text: q.Text, Completed: answered[q.ID]})
	}
	return state, nil
}
