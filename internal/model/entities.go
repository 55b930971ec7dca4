package model

// Reference entities are consumed read-only by the scheduling core; their
// own CRUD lifecycle lives with the surrounding application. Only the fields
// the core reads are modeled; unknown fields in persisted documents survive
// round-trips on the owning side, not here.

type Location struct {
	City    string `json:"city,omitempty"`
	Address string `json:"address,omitempty"`
}

type Client struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Phone    string   `json:"phone,omitempty"`
	Email    string   `json:"email,omitempty"`
	Location Location `json:"location,omitempty"`
}

type Staff struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type Service struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"` // minutes
}
