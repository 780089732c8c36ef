package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pushdispatch.app/internal/core/dispatch"
	"pushdispatch.app/internal/mocks"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

func TestStateLoader_Load_ActiveProtocol(t *testing.T) {
	api := mocks.NewTreatmentAPI(t)
	api.On("GetProtocolAssignments", mock.Anything, "u1").Return(&ports.ProtocolAssignments{
		Active: []ports.ProtocolData{{ID: "p1", Status: "ACTIVE", Progress: 60}},
	}, nil)
	api.On("GetDailyCheckin", mock.Anything, "p1").Return(&ports.DailyCheckin{
		HasCheckinToday: false,
		Questions:       []ports.CheckinQuestion{{ID: "q1"}, {ID: "q2"}, {ID: "q3"}},
		Responses:       []ports.CheckinResponse{{QuestionID: "q2", Answer: "yes"}},
	}, nil)

	state, err := NewStateLoader(api).Load(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 60.0, state.ProgressPercent)
	assert.Len(t, state.Tasks, 3)
	assert.Equal(t, 1, state.CompletedTasks())
	assert.True(t, state.Tasks[1].Completed)
}

func TestStateLoader_Load_PendingOnlySkipsCheckin(t *testing.T) {
	api := mocks.NewTreatmentAPI(t)
	api.On("GetProtocolAssignments", mock.Anything, "u1").Return(&ports.ProtocolAssignments{
		Pending: []ports.ProtocolData{{ID: "p2", Status: "INACTIVE"}},
	}, nil)

	state, err := NewStateLoader(api).Load(context.Background(), "u1")

	require.NoError(t, err)
	assert.Len(t, state.PendingProtocols, 1)
	api.AssertNotCalled(t, "GetDailyCheckin", mock.Anything, mock.Anything)
}

func TestStateLoader_Load_CompletedProtocolSkipsCheckin(t *testing.T) {
	api := mocks.NewTreatmentAPI(t)
	api.On("GetProtocolAssignments", mock.Anything, "u1").Return(&ports.ProtocolAssignments{
		Active: []ports.ProtocolData{{ID: "p1", Status: "ACTIVE", Progress: 100}},
	}, nil)

	state, err := NewStateLoader(api).Load(context.Background(), "u1")

	require.NoError(t, err)
	api.AssertNotCalled(t, "GetDailyCheckin", mock.Anything, mock.Anything)

	content := Resolve(DefaultJobs("Europe/London")[0], state, time.Now(), StatusReplace)
	require.NotNil(t, content)
	assert.Equal(t, dispatch.KindTreatmentComplete, content.Kind)
}

func TestStateLoader_Load_UpstreamErrors(t *testing.T) {
	api := mocks.NewTreatmentAPI(t)
	api.On("GetProtocolAssignments", mock.Anything, "u1").Return(nil, errors.NewExternalAPIError("status 502", nil))
	api.On("GetProtocolAssignments", mock.Anything, "u2").Return(&ports.ProtocolAssignments{
		Active: []ports.ProtocolData{{ID: "p9"}},
	}, nil)
	api.On("GetDailyCheckin", mock.Anything, "p9").Return(nil, errors.NewExternalAPIError("malformed", nil))

	loader := NewStateLoader(api)

	_, err := loader.Load(context.Background(), "u1")
	assert.True(t, errors.IsExternalAPIError(err))

	_, err = loader.Load(context.Background(), "u2")
	assert.True(t, errors.IsExternalAPIError(err))
}
