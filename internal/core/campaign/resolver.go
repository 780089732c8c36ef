package campaign

import (
	"fmt"
	"math"
	"time"

	"pushdispatch.app/internal/core/dispatch"
	"pushdispatch.app/internal/core/ledger"
)

var hourlyMessages = [24]string{
	"Time for your midnight check-in. Your health matters even at this hour.",
	"Late night check-in reminder. Every update helps your progress.",
	"Night owl? Take a moment for your health check-in.",
	"Early hours check-in reminder. Your dedication is admirable.",
	"Pre-dawn check-in time. Stay committed to your health journey.",
	"Early morning check-in reminder. Start your day with good habits.",
	"Morning check-in time. Begin your day with a health update.",
	"Breakfast time check-in. How are you feeling this morning?",
	"Morning routine check-in. Track your progress as the day begins.",
	"Mid-morning check-in reminder. Keep your treatment on track.",
	"Late morning check-in. Your consistent updates help your progress.",
	"Almost noon check-in. Take a moment to record your status.",
	"Noon check-in time. How is your day progressing?",
	"Early afternoon reminder. Your check-in matters.",
	"Afternoon check-in time. Stay engaged with your treatment.",
	"Mid-afternoon reminder. Your updates help your healthcare team.",
	"Late afternoon check-in. Keep up with your health tracking.",
	"Evening approaching. Time for your health check-in.",
	"Early evening reminder. Your consistent updates matter.",
	"Evening check-in time. Reflect on your day's progress.",
	"Night-time check-in reminder. Your dedication shows.",
	"Getting late - time for your daily check-in.",
	"Late evening reminder. Complete your daily health update.",
	"Late night check-in time. End your day with good habits.",
}

const fallbackHourlyMessage = "Time to complete your daily check-in."

// HourlyMessage returns the reminder line for a local hour of day.
func HourlyMessage(hour int) string {
	if hour < 0 || hour >= len(hourlyMessages) {
		return fallbackHourlyMessage
	}
	return hourlyMessages[hour]
}

// DaysUntil is the whole number of days from now to start, rounded up and
// never negative.
func DaysUntil(start, now time.Time) int {
	days := math.Ceil(start.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}

// Resolve picks the message for job given the recipient's state, or nil when
// nothing should be sent. Status conditions are checked first, in order:
// no protocols, pending only, active complete.
func Resolve(job Job, state *TreatmentState, now time.Time, policy StatusPolicy) *Content {
	if state == nil {
		return nil
	}

	if status := resolveStatus(state, now); status != nil {
		if policy == StatusSuppress {
			return nil
		}
		return status
	}

	if job.SkipWhenCheckedIn && state.CheckedInToday {
		return nil
	}

	content := &Content{Kind: job.Kind, Granularity: job.Granularity}
	total := len(state.Tasks)
	completed := state.CompletedTasks()

	switch job.Kind {
	case dispatch.KindMorningTasks:
		content.Title = "Good Morning! ☀️"
		if total == 0 {
			content.Body = "Your daily check-in is ready. Take a moment to record how you feel today."
		} else {
			content.Body = fmt.Sprintf("You have %d %s for today. Let's make it a great day!", total, plural(total, "task", "tasks"))
		}
	case dispatch.KindAfternoonReminder:
		content.Title = "Afternoon Check-in ⏰"
		if remaining := total - completed; remaining > 0 {
			content.Body = fmt.Sprintf("You still have %d of %d %s to complete today.", remaining, total, plural(total, "task", "tasks"))
		} else {
			content.Body = "Don't forget to submit your daily check-in."
		}
	case dispatch.KindEveningSummary:
		content.Title = "Daily Summary 📋"
		switch {
		case total == 0:
			content.Body = "No tasks were scheduled today. Rest well!"
		case completed == total:
			content.Body = fmt.Sprintf("Excellent work! You completed %d/%d tasks today. 🌟", completed, total)
		default:
			content.Body = fmt.Sprintf("You completed %d/%d tasks today. Tomorrow is a new chance to keep going!", completed, total)
		}
	case dispatch.KindHourlyReminder:
		content.Title = "Check-in Reminder"
		content.Body = HourlyMessage(now.Hour())
	default:
		return nil
	}
	return content
}

func resolveStatus(state *TreatmentState, now time.Time) *Content {
	switch {
	case len(state.ActiveProtocols) == 0 && len(state.PendingProtocols) == 0:
		return &Content{
			Kind:        dispatch.KindNoTreatment,
			Granularity: ledger.GranularityDaily,
			Title:       "Welcome to Cxlus! 👋",
			Body:        "No active treatment yet. Contact your doctor to start your journey!",
			Status:      true,
		}
	case len(state.ActiveProtocols) == 0:
		return &Content{
			Kind:        dispatch.KindStartingSoon,
			Granularity: ledger.GranularityDaily,
			Title:       "Treatment Starting Soon! 🎯",
			Body:        startingSoonBody(state.PendingProtocols[0].StartDate, now),
			Status:      true,
		}
	case state.ProgressPercent >= 100:
		return &Content{
			Kind:        dispatch.KindTreatmentComplete,
			Granularity: ledger.GranularityDaily,
			Title:       "Treatment Complete! 🎉",
			Body:        "Congratulations on completing your treatment! Schedule a follow-up with your doctor.",
			Status:      true,
		}
	}
	return nil
}

func startingSoonBody(start *time.Time, now time.Time) string {
	if start == nil {
		return "Your treatment plan begins soon. Get ready for your transformation journey!"
	}
	switch days := DaysUntil(*start, now); days {
	case 0:
		return "Your treatment plan begins today. Get ready for your transformation journey!"
	case 1:
		return "Your treatment plan begins in 1 day. Get ready for your transformation journey!"
	default:
		return fmt.Sprintf("Your treatment plan begins in %d days. Get ready for your transformation journey!", days)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
