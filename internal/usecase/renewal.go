package usecase

import (
	"time"

	"github.com/user/campuscore/internal/domain"
)

// DeriveRenewalStatus computes the display-facing renewal classification for a
// school from its lifecycle state and latest subscription. It is a pure
// function of its inputs.
//
// The rules are evaluated top to bottom and the first match wins. The order
// matters: an expired trial must never be reported healthy just because a
// stale current_period_end exists, and the school's lifecycle state always
// outranks subscription dates.
func DeriveRenewalStatus(status domain.SchoolStatus, trialEndsAt *time.Time, sub *domain.Subscription, now time.Time) domain.RenewalStatus {
	if status == domain.StatusTrial && trialEndsAt != nil && trialEndsAt.Before(now) {
		return domain.RenewalStatus{State: domain.RenewalTrialEnded}
	}

	if status != domain.StatusActive && status != domain.StatusTrial {
		return domain.RenewalStatus{State: domain.RenewalInactive, SchoolStatus: status}
	}

	if sub != nil {
		switch sub.Status {
		case domain.SubCanceled:
			return domain.RenewalStatus{State: domain.RenewalCancelled}
		case domain.SubPastDue:
			return domain.RenewalStatus{State: domain.RenewalPastDue}
		}
	}

	if sub == nil || sub.Status != domain.SubActive {
		return domain.RenewalStatus{State: domain.RenewalInactiveSubscription}
	}

	if sub.CurrentPeriodEnd == nil {
		return domain.RenewalStatus{State: domain.RenewalNoEndDate}
	}

	days := daysBetweenDates(now, *sub.CurrentPeriodEnd)
	switch {
	case days <= 0:
		return domain.RenewalStatus{State: domain.RenewalExpired, DaysUntilRenewal: days}
	case days <= 7:
		return domain.RenewalStatus{State: domain.RenewalSoon, DaysUntilRenewal: days}
	case days <= 30:
		return domain.RenewalStatus{State: domain.RenewalNextMonth, DaysUntilRenewal: days}
	default:
		return domain.RenewalStatus{State: domain.RenewalHealthy, DaysUntilRenewal: days}
	}
}

// daysBetweenDates returns the number of whole calendar days from the date of
// "from" to the date of "to". Negative when "to" is in the past.
func daysBetweenDates(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
