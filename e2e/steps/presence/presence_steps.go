package presence

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetEventID() string
}

// RegisterSteps registers presence dashboard step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &presenceSteps{tc: tc}

	ctx.Step(`^the dashboard should show (\d+) registered and (\d+) checked in$`, steps.dashboardShows)
}

type presenceSteps struct {
	tc TestContext
}

func (s *presenceSteps) dashboardShows(ctx context.Context, total, checkedIn int) error {
	if err := s.tc.GET("/events/"+s.tc.GetEventID()+"/presence", nil); err != nil {
		return err
	}
	for field, want := range map[string]int{"total": total, "checked_in": checkedIn} {
		v, err := s.tc.GetResponseField(field)
		if err != nil {
			return err
		}
		// JSON numbers decode as float64.
		if got, ok := v.(float64); !ok || int(got) != want {
			return fmt.Errorf("expected %s = %d, got %v", field, want, v)
		}
	}
	return nil
}
