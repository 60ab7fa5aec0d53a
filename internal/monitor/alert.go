package monitor

import (
	"fmt"
	"strings"

	"github.com/juststeveking/lookout/internal/config"
	"github.com/juststeveking/lookout/internal/notify"
)

// TimeLayout is used for check times in alerts
const TimeLayout = "2006-01-02 15:04:05"

// BuildAlert composes the alert for a check in which the phrase was missing.
// The message depends only on the target and the check time.
func BuildAlert(target config.Target, result CheckResult) notify.AlertMessage {
	var b strings.Builder

	fmt.Fprintf(&b, "IMPORTANT: The monitored phrase was not found on the %s page!\n\n", target.Name)
	b.WriteString("This might mean that registration is now OPEN.\n\n")
	fmt.Fprintf(&b, "Please check immediately: %s\n\n", target.URL)
	fmt.Fprintf(&b, "Monitoring phrase: \"%s\"\n", target.Phrase)
	fmt.Fprintf(&b, "Time checked: %s\n\n", result.CheckedAt.Format(TimeLayout))
	b.WriteString("This is an automated alert from lookout.")

	return notify.AlertMessage{
		Subject:     fmt.Sprintf("%s registration alert: phrase not found", target.Name),
		Body:        b.String(),
		GeneratedAt: result.CheckedAt,
	}
}
