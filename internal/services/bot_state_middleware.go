package services

type BotStateMiddleware struct {
	stateManager *BotStateManager
	adminID      int64
}

func NewBotStateMiddleware(stateManager *BotStateManager, adminID int64) *BotStateMiddleware {
	return &BotStateMiddleware{
		stateManager: stateManager,
		adminID:      adminID,
	}
}

// ShouldProcessMessage reports whether the user's update should be handled
// and, when not, the notice to show instead.
func (m *BotStateMiddleware) ShouldProcessMessage(userID int64) (bool, string) {
	if m.stateManager.IsUserAllowed(userID, userID == m.adminID) {
		return true, ""
	}
	return false, m.stateManager.MaintenanceMessage()
}
