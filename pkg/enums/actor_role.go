package enums

// ActorRole is the role carried by the authenticated actor creating orders.
type ActorRole string

const (
	ActorRoleAdmin   ActorRole = "admin"
	ActorRoleManager ActorRole = "manager"
	ActorRoleCashier ActorRole = "cashier"
	ActorRoleClerk   ActorRole = "clerk"
	ActorRoleSystem  ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRoleManager,
	ActorRoleCashier,
	ActorRoleClerk,
	ActorRoleSystem,
}

func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	return member(r, validActorRoles)
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	return parse(value, validActorRoles, "actor role")
}
