package app

import "livequiz-service/internal/domain"

// Subscription is one client's live feed of session events. The caller
// must invoke Cancel to avoid leaks; a dropped delivery to a slow or dead
// subscriber never fails the publish for anyone else.
type Subscription struct {
	role   Role
	ch     chan Event
	cancel func()
}

// Events returns the receive side of the subscription.
func (sub *Subscription) Events() <-chan Event { return sub.ch }

// Role reports which audience this subscription belongs to.
func (sub *Subscription) Role() Role { return sub.role }

// Cancel detaches the subscription and closes its channel. Safe to call
// more than once.
func (sub *Subscription) Cancel() { sub.cancel() }

func (s *Session) subscribe(role Role) *Subscription {
	sub := &Subscription{
		role: role,
		ch:   make(chan Event, 16),
	}
	sub.cancel = func() {
		s.mu.Lock()
		if _, ok := s.subscribers[sub]; ok {
			delete(s.subscribers, sub)
			close(sub.ch)
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.subscribers[sub] = struct{}{}
	// Resync on attach: full roster, plus a question replay when one is
	// live, so reconnecting clients never depend on missed events.
	resync := []Event{ParticipantList{Participants: s.rosterLocked()}}
	if s.phase == domain.PhaseQuestion {
		resync = append(resync, s.questionShownLocked())
	}
	s.mu.Unlock()

	for _, ev := range resync {
		sub.ch <- ev
	}
	return sub
}

func (s *Session) publishLocked(role Role, ev Event) {
	for sub := range s.subscribers {
		if role != RoleAll && sub.role != role {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Drop the oldest buffered event rather than blocking the
			// session on a slow subscriber.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- ev
		}
	}
}
