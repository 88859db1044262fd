package domain

// ResourceKind names what an authorization check is about.
type ResourceKind string

const (
	ResourceSystem     ResourceKind = "system"
	ResourceGroup      ResourceKind = "group"
	ResourcePreference ResourceKind = "preference"
)

// Action is what the actor wants to do with a resource.
type Action string

const (
	ActionAdminister    Action = "administer"
	ActionRead          Action = "read"
	ActionReadMembers   Action = "read_members"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionManageMembers Action = "manage_members"
	ActionWrite         Action = "write"
)

// Resource identifies the target of an authorization decision.
type Resource struct {
	Kind    ResourceKind
	ID      string
	OwnerID string
}

func SystemResource() Resource { return Resource{Kind: ResourceSystem} }

func GroupResource(groupID string) Resource {
	return Resource{Kind: ResourceGroup, ID: groupID}
}

func PreferenceResource(ownerID, key string) Resource {
	return Resource{Kind: ResourcePreference, ID: key, OwnerID: ownerID}
}

// Decision is the outcome of an authorization check. Denied decisions carry
// the error returned to the caller.
type Decision struct {
	Allowed bool
	Reason  error
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason error) Decision { return Decision{Reason: reason} }
