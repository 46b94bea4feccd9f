package fsm

// Conversation states of a chat outside the wizard screens. The empty state
// means commands and wizard input are handled normally.
const (
	StateIdle                  = ""
	StateAwaitingVerification  = "awaiting_verification"
	StateAwaitingPasswordReset = "awaiting_password_reset"
	StateAdminEditSettingValue = "admin_edit_setting_value"
)
