package checkin

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "rollcall/pkg/domain"
)

func TestOutcomeHTTPStatus(t *testing.T) {
	tests := []struct {
		outcome Outcome
		status  int
	}{
		{success(id.NewAttendeeID(), "Kim", time.Now()), http.StatusOK},
		{invalidToken(), http.StatusBadRequest},
		{NotFound(), http.StatusNotFound},
		{alreadyCheckedIn(id.NewAttendeeID(), "Kim"), http.StatusConflict},
		{UpdateFailed(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome.Kind), func(t *testing.T) {
			assert.Equal(t, tt.status, tt.outcome.HTTPStatus())
		})
	}
}

func TestOutcomeJSONOmitsEmptyAttendee(t *testing.T) {
	b, err := json.Marshal(NotFound())
	require.NoError(t, err)
	assert.JSONEq(t, `{"outcome":"not_found","message":"Attendee not found."}`, string(b))
}
