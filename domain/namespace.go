package domain

import "fmt"

// Namespace separates the three socket surfaces. A connection belongs to exactly one.
type Namespace string

const (
	Video     Namespace = "video"
	Community Namespace = "community"
	Assistant Namespace = "assistant"
)

func (n Namespace) Valid() bool {
	switch n {
	case Video, Community, Assistant:
		return true
	}
	return false
}

// RoomKey identifies a room (video) or a chat scope (community).
type RoomKey struct {
	Namespace Namespace
	ID        string
}

func (k RoomKey) String() string {
	return fmt.Sprintf("%s/%s", k.Namespace, k.ID)
}

func (k RoomKey) IsZero() bool {
	return k.ID == ""
}
