package model

// TurnState is the position of a session inside one request lifecycle.
//
//	Idle -> Fetching -> Composing -> Idle
//	Idle -> Cleared (explicit reset)
type TurnState int

const (
	StateIdle TurnState = iota
	StateFetching
	StateComposing
	StateCleared
)

func (s TurnState) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateComposing:
		return "composing"
	case StateCleared:
		return "cleared"
	default:
		return "idle"
	}
}

// QueryInput represents the input for processing user queries.
type QueryInput struct {
	Identity string `json:"identity"`
	Query    string `json:"query"`
}

// TurnResult is what a completed turn hands back to the surface.
type TurnResult struct {
	Answer string
	// Cached is true when the answer came from the response cache and no
	// model call was made.
	Cached bool
	// Kinds lists the resource kinds that were part of the context.
	Kinds []ResourceKind
}
