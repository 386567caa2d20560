package eligibility

// Role is the climate-system role of an account. It is always derived from
// on-chain signals and never stored.
type Role string

const (
	RoleNone      Role = "none"
	RoleReporter  Role = "reporter"
	RoleValidator Role = "validator"
	RoleDAOMember Role = "dao_member"
)

// IsMember reports whether the role grants any membership.
func (r Role) IsMember() bool {
	return r != RoleNone && r != ""
}

// Signals are the three independent inputs of the role decision.
type Signals struct {
	DAOMember   bool
	RoleCounter uint8
	HasStaked   bool
}

// ResolveRole applies the precedence dao_member > validator > reporter > none.
func ResolveRole(s Signals) Role {
	switch {
	case s.DAOMember:
		return RoleDAOMember
	case s.RoleCounter > 0 && s.HasStaked:
		return RoleValidator
	case s.RoleCounter > 0:
		return RoleReporter
	default:
		return RoleNone
	}
}
