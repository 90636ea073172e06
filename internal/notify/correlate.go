package notify

import (
	"github.com/nhle/grievance-desk/internal/crossref"
	"github.com/nhle/grievance-desk/internal/model"
)

// Matches reports whether n is about the entity with the given id.
//
// An explicit EntityID on the notification is checked first. Otherwise the
// message is scanned for a "#<id>" reference whose digit run ends where id
// ends, so id 7 does not match "#70". The text scan is a best-effort
// fallback for servers that do not send EntityID. Ids that are not decimal
// integers never match.
func Matches(n model.Notification, entityID string) bool {
	if !crossref.IsEntityID(entityID) {
		return false
	}
	if n.EntityID != "" && n.EntityID == entityID {
		return true
	}
	return crossref.References(n.Message, entityID)
}

// HasActivity reports whether any unread notification matches entityID.
// It has no side effects and is cheap enough to call on every render.
func (s *Store) HasActivity(entityID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.notifications {
		if !n.Read && Matches(n, entityID) {
			return true
		}
	}
	return false
}

// ActiveEntities returns the subset of ids that have unread activity,
// taking the lock once for the whole batch.
func (s *Store) ActiveEntities(ids []string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make(map[string]bool)
	if s.unread == 0 {
		return active
	}
	for _, id := range ids {
		for _, n := range s.notifications {
			if !n.Read && Matches(n, id) {
				active[id] = true
				break
			}
		}
	}
	return active
}
