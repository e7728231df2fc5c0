package model

import "time"

// TimeTracking accumulates the work sessions logged against one task.
type TimeTracking struct {
	// TotalMinutes is the sum of all closed session durations.
	TotalMinutes int       `json:"total_minutes"`
	Sessions     []Session `json:"sessions"`
}

// Session is one contiguous interval of tracked work. EndTime and
// Duration are both nil while the session is open.
type Session struct {
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  *int       `json:"duration,omitempty"`
}

// Open reports whether the session has not been stopped yet.
func (s Session) Open() bool {
	return s.EndTime == nil
}

// OpenSession returns the trailing open session, if any.
func (tt *TimeTracking) OpenSession() *Session {
	if tt == nil || len(tt.Sessions) == 0 {
		return nil
	}
	last := &tt.Sessions[len(tt.Sessions)-1]
	if !last.Open() {
		return nil
	}
	return last
}

func (tt TimeTracking) clone() TimeTracking {
	c := TimeTracking{TotalMinutes: tt.TotalMinutes}
	if tt.Sessions != nil {
		c.Sessions = make([]Session, len(tt.Sessions))
		for i, s := range tt.Sessions {
			c.Sessions[i] = Session{
				StartTime: s.StartTime,
				EndTime:   cloneTime(s.EndTime),
			}
			if s.Duration != nil {
				d := *s.Duration
				c.Sessions[i].Duration = &d
			}
		}
	}
	return c
}
