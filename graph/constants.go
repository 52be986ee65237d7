package graph

// MaxTraversalDegrees caps relationship expansion depth. Requests above
// the cap are clamped, never rejected.
const MaxTraversalDegrees = 5
