package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// ErrNilACSFatalLogMsg is used if app, cfg or the auth service is nil.
	ErrNilACSFatalLogMsg = "app, cfg or auth service is nil"
)
