package domain

import (
	"fmt"
	"log/slog"
)

// LoginStage is a step of an external login.
type LoginStage string

const (
	StageAwaitingCode    LoginStage = "awaiting_code"
	StageExchangingToken LoginStage = "exchanging_token"
	StageFetchingProfile LoginStage = "fetching_profile"
	StageLinking         LoginStage = "linking"
	StageIssuingSession  LoginStage = "issuing_session"
	StageRedirected      LoginStage = "redirected"
	StageFailed          LoginStage = "failed"
)

var loginTransitions = map[LoginStage][]LoginStage{
	StageAwaitingCode:    {StageExchangingToken, StageLinking},
	StageExchangingToken: {StageFetchingProfile},
	StageFetchingProfile: {StageLinking, StageRedirected},
	StageLinking:         {StageIssuingSession},
	StageIssuingSession:  {StageRedirected},
}

// LoginFlow tracks one external login attempt. Each transition happens at
// most once and a failure is terminal; a new attempt needs a new flow.
//
// The bridge process runs AwaitingCode → ExchangingToken → FetchingProfile →
// Redirected; the main app picks up the handoff at AwaitingCode → Linking.
type LoginFlow struct {
	Provider AuthProvider
	stage    LoginStage
	reason   error
}

// NewLoginFlow starts a flow in StageAwaitingCode.
func NewLoginFlow(provider AuthProvider) *LoginFlow {
	return &LoginFlow{Provider: provider, stage: StageAwaitingCode}
}

// Stage returns the current stage.
func (f *LoginFlow) Stage() LoginStage {
	return f.stage
}

// Reason returns the error that failed the flow, if any.
func (f *LoginFlow) Reason() error {
	return f.reason
}

// Advance moves the flow to next. Illegal transitions, including any move out
// of a terminal stage, return an error and leave the flow unchanged.
func (f *LoginFlow) Advance(next LoginStage) error {
	for _, allowed := range loginTransitions[f.stage] {
		if allowed == next {
			slog.Debug("login flow transition",
				"provider", f.Provider,
				"from", f.stage,
				"to", next,
			)
			f.stage = next
			return nil
		}
	}
	return fmt.Errorf("illegal login transition %s -> %s", f.stage, next)
}

// Fail moves the flow to StageFailed and returns the redirect code for err.
// Failing an already terminal flow keeps the first reason.
func (f *LoginFlow) Fail(err error) string {
	if f.stage != StageFailed && f.stage != StageRedirected {
		slog.Warn("external login failed",
			"provider", f.Provider,
			"stage", f.stage,
			"error", err,
		)
		f.stage = StageFailed
		f.reason = err
	}
	return RedirectCode(f.reason)
}
