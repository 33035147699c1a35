package permissions

import api "github.com/OvyFlash/telegram-bot-api"

// IsChatAdmin reports whether the member holds the administrator or
// creator role. Callers treat a failed role fetch as not privileged.
func IsChatAdmin(member *api.ChatMember) bool {
	if member == nil {
		return false
	}
	return member.IsCreator() || member.IsAdministrator()
}
