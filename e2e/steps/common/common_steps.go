package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetStatusCode() int
	GetResponseField(field string) (interface{}, error)
	GetEventID() string
	SetEventID(id string)
	SetCheckInURL(name, url string)
}

// RegisterSteps registers background and generic assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^an event "([^"]*)" on "([^"]*)"$`, steps.createEvent)
	ctx.Step(`^"([^"]*)" registers with phone "([^"]*)"$`, steps.register)
	ctx.Step(`^I register "([^"]*)" with phone "([^"]*)"$`, steps.registerRaw)
	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) createEvent(ctx context.Context, title, date string) error {
	if err := s.tc.POST("/events", map[string]interface{}{"title": title, "date": date}); err != nil {
		return err
	}
	if err := s.statusShouldBe(ctx, 201); err != nil {
		return err
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.SetEventID(id.(string))
	return nil
}

func (s *commonSteps) register(ctx context.Context, name, phone string) error {
	if err := s.registerRaw(ctx, name, phone); err != nil {
		return err
	}
	if err := s.statusShouldBe(ctx, 201); err != nil {
		return err
	}
	url, err := s.tc.GetResponseField("checkin_url")
	if err != nil {
		return err
	}
	s.tc.SetCheckInURL(name, url.(string))
	return nil
}

func (s *commonSteps) registerRaw(ctx context.Context, name, phone string) error {
	return s.tc.POST("/events/"+s.tc.GetEventID()+"/attendees", map[string]interface{}{
		"name":  name,
		"phone": phone,
	})
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetStatusCode(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}
