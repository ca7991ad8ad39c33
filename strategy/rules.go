package strategy

// DayRuleState carries the cross-day rule flags. It is a plain value:
// the day loop passes the current state in and threads the returned state
// forward, so runs for different symbols can never share flags.
//
// The sequencing it encodes: a target-hit day forces the next tradeable day
// to be skipped; the day after a skip caused by a target hit is the "third
// day"; a profitable third day causes the next skip's follow-up to be the
// "fifth day", which in turn sets SkipNextDay.
type DayRuleState struct {
	PreviousDayTargetHit bool
	SkipToday            bool
	SkipNextDay          bool
	IsThirdDay           bool
	IsFifthDay           bool
	ThirdDayProfitable   bool
}

// AfterTradedDay advances the state once a day's trades are finalized.
// The branches are mutually exclusive and ordered: a target hit trumps the
// third-day check, which trumps the fifth-day check.
func (s DayRuleState) AfterTradedDay(targetHit bool, profit float64) DayRuleState {
	switch {
	case targetHit:
		s.PreviousDayTargetHit = true
		s.SkipToday = true
	case s.IsThirdDay:
		if profit > 0 {
			s.ThirdDayProfitable = true
		}
		s.IsThirdDay = false
	case s.IsFifthDay:
		// SkipNextDay is recorded but nothing in the day loop consumes it;
		// only SkipToday is honored. Kept as observed behavior.
		s.SkipNextDay = true
		s.IsFifthDay = false
	}
	return s
}

// AfterSkippedDay advances the state after a day was skipped by policy
// (SkipToday). Days dropped for missing data or an invalid range do not go
// through here: they leave the flags untouched, so the first tradeable day
// consumes the pending skip.
func (s DayRuleState) AfterSkippedDay() DayRuleState {
	s.SkipToday = false

	switch {
	case s.PreviousDayTargetHit:
		s.IsThirdDay = true
		s.PreviousDayTargetHit = false
	case s.ThirdDayProfitable:
		s.IsFifthDay = true
		s.ThirdDayProfitable = false
	}
	return s
}
