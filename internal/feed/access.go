package feed

import (
	"github.com/angelmondragon/lendinglib-backend/pkg/enums"
)

// Viewer identifies who is reading the feed.
type Viewer struct {
	UserID string
	Role   enums.MemberRole
}

// CanView reports whether role may see the conflict feed.
func CanView(role enums.MemberRole) bool {
	return role.IsPrivileged()
}
