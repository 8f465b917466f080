package e2e

import (
	"github.com/cucumber/godog"

	"rollcall/e2e/steps/checkin"
	"rollcall/e2e/steps/common"
	"rollcall/e2e/steps/presence"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (events, registration, generic assertions)
	common.RegisterSteps(ctx, tc)

	// Register check-in steps
	checkin.RegisterSteps(ctx, tc)

	// Register presence dashboard steps
	presence.RegisterSteps(ctx, tc)
}
