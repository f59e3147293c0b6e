package authz

import "github.com/google/uuid"

type Capability int

const (
	CapApproveFirstTier Capability = iota + 1
	CapApproveSecondTier
	CapApproveAsAdmin
	CapUnlockAccount
	CapDeleteAccount
)

var capabilityNames = map[Capability]string{
	CapApproveFirstTier:  "approve_first_tier",
	CapApproveSecondTier: "approve_second_tier",
	CapApproveAsAdmin:    "approve_as_admin",
	CapUnlockAccount:     "unlock_account",
	CapDeleteAccount:     "delete_account",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return "unknown"
}

type capabilitySet map[Capability]struct{}

func caps(cs ...Capability) capabilitySet {
	set := make(capabilitySet, len(cs))
	for _, c := range cs {
		set[c] = struct{}{}
	}
	return set
}

var roleCapabilities = map[Role]capabilitySet{
	RoleAdministrator: caps(
		CapApproveFirstTier,
		CapApproveSecondTier,
		CapApproveAsAdmin,
		CapUnlockAccount,
		CapDeleteAccount,
	),
	RoleEBM:            caps(CapApproveFirstTier),
	RoleMembershipHead: caps(CapApproveSecondTier, CapUnlockAccount),
	RoleTreasurer:      caps(),
	RoleEventManager:   caps(),
	RoleMember:         caps(),
}

func (r Role) Can(c Capability) bool {
	set, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = set[c]
	return ok
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) Can(c Capability) bool {
	return a.ID != uuid.Nil && a.Role.Can(c)
}
