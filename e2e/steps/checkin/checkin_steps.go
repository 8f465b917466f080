package checkin

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GET(path string, headers map[string]string) error
	GetResponseField(field string) (interface{}, error)
	GetEventID() string
	GetCheckInURL(name string) (string, error)
}

// RegisterSteps registers check-in step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &checkinSteps{tc: tc}

	ctx.Step(`^the QR code of "([^"]*)" is scanned$`, steps.scan)
	ctx.Step(`^the payload "([^"]*)" is scanned$`, steps.scanPayload)
	ctx.Step(`^an empty QR code is scanned$`, steps.scanEmpty)
	ctx.Step(`^the check-in link of "([^"]*)" is opened$`, steps.openLink)
	ctx.Step(`^the check-in outcome should be "([^"]*)"$`, steps.outcomeShouldBe)
	ctx.Step(`^the check-in message should mention "([^"]*)"$`, steps.messageShouldMention)
}

type checkinSteps struct {
	tc TestContext
}

func (s *checkinSteps) scan(ctx context.Context, name string) error {
	link, err := s.tc.GetCheckInURL(name)
	if err != nil {
		return err
	}
	return s.scanPayload(ctx, link)
}

func (s *checkinSteps) scanPayload(ctx context.Context, payload string) error {
	return s.tc.POST("/checkin/"+s.tc.GetEventID(), map[string]interface{}{"payload": payload})
}

func (s *checkinSteps) scanEmpty(ctx context.Context) error {
	return s.scanPayload(ctx, "")
}

// openLink follows the badge URL the way a phone camera would, against the
// server under test rather than the public origin baked into the link.
func (s *checkinSteps) openLink(ctx context.Context, name string) error {
	link, err := s.tc.GetCheckInURL(name)
	if err != nil {
		return err
	}
	u, err := url.Parse(link)
	if err != nil {
		return err
	}
	return s.tc.GET(u.RequestURI(), nil)
}

func (s *checkinSteps) outcomeShouldBe(ctx context.Context, expected string) error {
	v, err := s.tc.GetResponseField("outcome")
	if err != nil {
		return err
	}
	if v != expected {
		return fmt.Errorf("expected outcome %q, got %v", expected, v)
	}
	return nil
}

func (s *checkinSteps) messageShouldMention(ctx context.Context, text string) error {
	v, err := s.tc.GetResponseField("message")
	if err != nil {
		return err
	}
	msg, _ := v.(string)
	if !strings.Contains(msg, text) {
		return fmt.Errorf("expected message to mention %q, got %q", text, msg)
	}
	return nil
}
