package profile

// Stage is the position in the screen flow.
type Stage string

// Stages, in flow order.
const (
	StageUninitialized Stage = "uninitialized"
	StageWelcome       Stage = "welcome"   // fresh profile, sign in or continue as guest
	StageSetup         Stage = "setup"     // display name not yet given
	StageConfirm       Stage = "confirm"   // dimensions not yet confirmed
	StageDashboard     Stage = "dashboard" // steady state
)

// Event kinds passed to the Notifier.
const (
	EventProfileUpdated   = "profile.updated"
	EventProgressRecorded = "progress.recorded"
	EventSessionChanged   = "session.changed"
)

// Notifier is told about every state change, after it has been applied
// and the service lock released, so it may call back into the Service.
type Notifier func(kind string, data any)
