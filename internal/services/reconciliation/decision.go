package reconciliation

type Entity string

const (
	EntityClient        Entity = "client"
	EntityClientAddress Entity = "client_address"
	EntitySenderAddress Entity = "sender_address"
)

type Action string

const (
	ActionKept       Action = "kept"
	ActionAssociated Action = "associated"
	ActionCreated    Action = "created"
	ActionUpdated    Action = "updated"
	ActionDeleted    Action = "deleted"
)

// Decision records what happened to one referenced entity during a write.
type Decision struct {
	Entity            Entity `json:"entity"`
	Action            Action `json:"action"`
	PreviousID        *uint  `json:"previous_id,omitempty"`
	CurrentID         *uint  `json:"current_id,omitempty"`
	Changed           bool   `json:"changed"`
	ExistingElsewhere bool   `json:"existing_elsewhere"`
	ReferenceCount    int64  `json:"reference_count"`
	SharedAcrossRoles bool   `json:"shared_across_roles,omitempty"`
	OrphanDeleted     bool   `json:"orphan_deleted,omitempty"`
}
