package audithook

// Audit event actions. Each constant corresponds to one ext lifecycle hook
// and becomes the Action field of the audit event.
const (
	ActionPassCompleted   = "pass.completed"
	ActionPassFailed      = "pass.failed"
	ActionNodeClaimed     = "node.claimed"
	ActionSessionOffered  = "session.offered"
	ActionSessionDeclined = "session.declined"
	ActionSessionFinished = "session.finished"
	ActionShutdown        = "instance.shutdown"
)

// Audit event categories group related actions.
const (
	CategoryPass     = "ledgerwork.pass"
	CategorySession  = "ledgerwork.session"
	CategoryInstance = "ledgerwork.instance"
)

// Resource types used as the Resource field in audit events.
const (
	ResourcePass     = "scheduling_pass"
	ResourceNode     = "ledger_node"
	ResourceSession  = "work_session"
	ResourceInstance = "instance"
)

// AllActions returns every action this extension can emit.
func AllActions() []string {
	return []string{
		ActionPassCompleted,
		ActionPassFailed,
		ActionNodeClaimed,
		ActionSessionOffered,
		ActionSessionDeclined,
		ActionSessionFinished,
		ActionShutdown,
	}
}
