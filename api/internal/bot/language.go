package bot

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageName renders a language code such as "en" or "zh-Hans" as an English
// display name. Unknown codes, including the service's "unk", are returned as is.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil || tag == language.Und {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
