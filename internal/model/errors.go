package model

import "errors"

// Sentinel errors for the validation/not-found taxonomy in spec §7. The
// HTTP layer matches these with errors.Is to choose a status code; every
// other error surfaces as a 500 or, if raised mid-step, is contained by
// the step runner and never reaches the HTTP layer at all.
var (
	ErrInvalidRequest    = errors.New("request must name either a testCaseId or a non-empty moduleIds")
	ErrMissingSocialAuth = errors.New("social login requires socialAuth.authTestCaseId")
	ErrTestCaseNotFound  = errors.New("test case not found")
	ErrUnsupportedEngine = errors.New("unsupported browser engine")
)
