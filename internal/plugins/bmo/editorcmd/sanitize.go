package editorcmd

import "strings"

const maxTitleRunes = 100

var titleReplacer = strings.NewReplacer(
	`"`, "", "'", "", "“", "", "”", "", "‘", "", "’", "", "`", "",
	`\`, "", "/", "", ":", "", "*", "", "?", "", "<", "", ">", "", "|", "", "#", "",
)

// SanitizeTitle turns a model reply into a usable file name: quotes and
// characters invalid in file names are removed, whitespace is collapsed and
// the result is capped at 100 runes.
func SanitizeTitle(reply string) string {
	title := strings.Join(strings.Fields(titleReplacer.Replace(reply)), " ")
	if runes := []rune(title); len(runes) > maxTitleRunes {
		title = strings.TrimSpace(string(runes[:maxTitleRunes]))
	}
	return strings.TrimSpace(strings.Trim(title, "."))
}
