package activity

import "time"

// Action labels recorded in the activity log.
const (
	ActionLogin             = "login"
	ActionLogout            = "logout"
	ActionPremiumFileUpload = "premium_file_upload"
	ActionFreeFileUpload    = "free_file_upload"
	ActionUpgradeToPremium  = "upgrade_to_premium"
)

// UploadActions are the labels counted as conversions.
var UploadActions = []string{ActionPremiumFileUpload, ActionFreeFileUpload}

type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"createdAt"`
}
