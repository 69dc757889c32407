package translation

import (
	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
	"strings"
)

// Configure loads the catalogue for lang from the locales directory.
func Configure(localesDir, lang string) {
	gotext.Configure(localesDir, LocaleName(lang), "default")
}

// LocaleName turns a language tag such as "zh-tw" or "zh_TW" into the
// directory name used by the catalogue ("zh_TW").
func LocaleName(lang string) string {
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil || tag == language.Und {
		return "en"
	}

	base, _ := tag.Base()
	region, confidence := tag.Region()
	if confidence != language.Exact {
		return base.String()
	}
	return base.String() + "_" + region.String()
}

func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
