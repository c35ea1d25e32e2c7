package models

// Practice is a single video practice in the catalog. Premium practices are
// only reachable with an access-granting subscription status.
type Practice struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PlaybackID  string `json:"playback_id"`
	IsPremium   bool   `json:"is_premium"`
	JourneySlug string `json:"journey_slug,omitempty"`
	Position    int    `json:"position,omitempty"`
}

// Journey is an ordered collection of practices. A premium journey gates the
// whole schedule; individual practices may additionally be premium on their
// own.
type Journey struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IsPremium   bool   `json:"is_premium"`
}
