// Package autoupdate provides the summary of newly staged builds.
package autoupdate

import "strings"

// NotificationTitle is the title used when builds were staged
const NotificationTitle = "Updates Found"

// Summarize joins the non-empty build IDs with newlines, in order.
// It reports false when nothing was staged.
func Summarize(ids []string) (string, bool) {
	staged := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			staged = append(staged, id)
		}
	}
	if len(staged) == 0 {
		return "", false
	}
	return strings.Join(staged, "\n"), true
}
