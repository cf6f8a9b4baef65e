// Package schedule decides whether an agent is permitted to act at a given
// moment based on its configured weekday/time-window rules.
package schedule

import (
	"time"

	"github.com/halcyard/botfarm/internal/bot"
)

// EligibleNow reports whether any rule permits acting at now. An agent with
// no rules is always eligible; inactive rules are skipped; a rule with a
// malformed timezone never matches.
func EligibleNow(rules []bot.ScheduleRule, now time.Time) bool {
	if len(rules) == 0 {
		return true
	}
	for _, r := range rules {
		if ruleMatches(r, now) {
			return true
		}
	}
	return false
}

func ruleMatches(r bot.ScheduleRule, now time.Time) bool {
	if !r.Active {
		return false
	}

	loc := time.UTC
	if r.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(r.Timezone)
		if err != nil {
			return false
		}
	}
	local := now.In(loc)

	if r.Weekday != nil && int(local.Weekday()) != *r.Weekday {
		return false
	}
	if r.StartMin == nil || r.EndMin == nil {
		return true
	}

	minute := local.Hour()*60 + local.Minute()
	start, end := *r.StartMin, *r.EndMin
	if start <= end {
		return minute >= start && minute < end
	}
	// Window wraps midnight, e.g. 22:00-02:00.
	return minute >= start || minute < end
}
