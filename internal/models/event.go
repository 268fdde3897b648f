package models

// Thought event types pushed to realtime subscribers.
const (
	EventThoughtCreated = "thought_created"
	EventThoughtLiked   = "thought_liked"
	EventThoughtUpdated = "thought_updated"
	EventThoughtDeleted = "thought_deleted"
)

// ThoughtEvent describes a committed change to a thought.
type ThoughtEvent struct {
	Type    string  `json:"type"`
	Thought Thought `json:"thought"`
}
