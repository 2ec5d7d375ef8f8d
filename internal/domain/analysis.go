package domain

// Segment is a label from a kind's fixed enumeration.
type Segment string

// Recommendation is a suggested action bound to the entity ids it applies to
// at generation time.
type Recommendation struct {
	ID          string
	Title       string
	Description string
	TargetIDs   []string
	ActionLabel string
}
