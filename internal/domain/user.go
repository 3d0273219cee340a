// Package domain contains core domain types for the widget runtime.
package domain

// UserProfile represents the comment-platform account bound to the
// current widget session. A nil profile means the widget is anonymous.
type UserProfile struct {
	ID              int64  `json:"id"`
	Nickname        string `json:"nickName"`
	ProfileImageURL string `json:"profileImageUrl"`
	Type            string `json:"type"`
	HasRecentAlarm  bool   `json:"hasRecentAlarm"`
}

// SameIdentity reports whether two profiles refer to the same account.
// Either side may be nil (anonymous).
func SameIdentity(a, b *UserProfile) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
