package common

import (
	"fmt"
	"strconv"
)

const (
	PrefixLength = 4
)

// RoleType defines the actor role in the support chat.
type RoleType string

const (
	RoleCustomer RoleType = "customer"
	RoleStaff    RoleType = "staff"
)

// Actor represents a dashboard identity that maps to a chat user id.
type Actor struct {
	Id   int64
	Role RoleType
}

// ToChatUserId converts an Actor to the chat system's string user id.
//
//	Actor{Id: 42, Role: RoleCustomer}.ToChatUserId() => "cu__42"
//	Actor{Id: 7, Role: RoleStaff}.ToChatUserId()     => "st__7"
func (a *Actor) ToChatUserId() (string, error) {
	switch a.Role {
	case RoleCustomer:
		return fmt.Sprintf("cu__%d", a.Id), nil
	case RoleStaff:
		return fmt.Sprintf("st__%d", a.Id), nil
	default:
		return "", fmt.Errorf("failed to transfer actor to user id, role: %s", a.Role)
	}
}

// FromChatUserId parses a chat user id string back into an Actor.
// Returns an error if the format is unrecognised.
func (a *Actor) FromChatUserId(userId string) error {
	if a == nil {
		return fmt.Errorf("actor is nil")
	}
	if len(userId) < PrefixLength+1 {
		return fmt.Errorf("invalid userId: %q", userId)
	}
	prefix := userId[:PrefixLength]
	idStr := userId[PrefixLength:]
	switch prefix {
	case "cu__":
		a.Role = RoleCustomer
	case "st__":
		a.Role = RoleStaff
	default:
		return fmt.Errorf("unknown prefix: %q", prefix)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id: %q", idStr)
	}
	a.Id = id
	return nil
}

// IsStaff reports whether the chat user id belongs to a staff member.
func IsStaff(userId string) bool {
	var a Actor
	if err := a.FromChatUserId(userId); err != nil {
		return false
	}
	return a.Role == RoleStaff
}
