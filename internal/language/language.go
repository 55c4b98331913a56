package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2 string   // ISO 639-1
	code3 string   // ISO 639-2 primary
	alt3  string   // ISO 639-2 bibliographic alternate
	words []string // English word forms
}

var languages = []entry{
	{"en", "eng", "", []string{"english"}},
	{"es", "spa", "", []string{"spanish"}},
	{"fr", "fra", "fre", []string{"french"}},
	{"de", "deu", "ger", []string{"german"}},
	{"it", "ita", "", []string{"italian"}},
	{"pt", "por", "", []string{"portuguese"}},
	{"ja", "jpn", "", []string{"japanese"}},
	{"ko", "kor", "", []string{"korean"}},
	{"zh", "zho", "chi", []string{"chinese", "mandarin"}},
	{"ru", "rus", "", []string{"russian"}},
	{"ar", "ara", "", []string{"arabic"}},
	{"hi", "hin", "", []string{"hindi"}},
	{"nl", "nld", "dut", []string{"dutch"}},
	{"pl", "pol", "", []string{"polish"}},
	{"sv", "swe", "", []string{"swedish"}},
	{"tr", "tur", "", []string{"turkish"}},
	{"uk", "ukr", "", []string{"ukrainian"}},
	{"vi", "vie", "", []string{"vietnamese"}},
}

var byAlias map[string]string

func init() {
	byAlias = make(map[string]string, len(languages)*4)
	for _, e := range languages {
		byAlias[e.code3] = e.code2
		if e.alt3 != "" {
			byAlias[e.alt3] = e.code2
		}
		for _, w := range e.words {
			byAlias[w] = e.code2
		}
	}
}

// Normalize converts a language code, BCP 47 tag or English word into a
// canonical BCP 47 tag ("ZH_cn" -> "zh-CN", "chinese" -> "zh"). Unparseable
// input yields "".
func Normalize(code string) string {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return ""
	}
	if mapped, ok := byAlias[strings.ToLower(code)]; ok {
		code = mapped
	}
	tag, err := xlang.Parse(code)
	if err != nil {
		return ""
	}
	return tag.String()
}

// Base returns the ISO 639 base language of code ("zh-TW" -> "zh").
func Base(code string) string {
	normalized := Normalize(code)
	if normalized == "" {
		return ""
	}
	base, _ := xlang.Make(normalized).Base()
	return base.String()
}

// ToISO2 converts any recognized code or word to ISO 639-1. Unknown input
// yields "".
func ToISO2(code string) string {
	base := Base(code)
	if len(base) != 2 {
		return ""
	}
	return base
}

// VoiceLocale returns the language-region locale speech engines expect,
// inferring the most likely region when code has none ("zh" -> "zh-CN",
// "ja" -> "ja-JP").
func VoiceLocale(code string) string {
	normalized := Normalize(code)
	if normalized == "" {
		return ""
	}
	tag := xlang.Make(normalized)
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf == xlang.No || region.String() == "ZZ" {
		return base.String()
	}
	return base.String() + "-" + region.String()
}

// DeepLXCode returns the upper-case code the DeepLX bridge accepts.
func DeepLXCode(code string) string {
	normalized := Normalize(code)
	if normalized == "" {
		return strings.ToUpper(strings.TrimSpace(code))
	}
	tag := xlang.Make(normalized)
	base, _ := tag.Base()
	switch base.String() {
	case "pt":
		if region, conf := tag.Region(); conf == xlang.Exact && region.String() == "PT" {
			return "PT-PT"
		}
		return "PT-BR"
	case "zh":
		if script, conf := tag.Script(); conf != xlang.No && script.String() == "Hant" {
			return "ZH-HANT"
		}
	}
	return strings.ToUpper(base.String())
}

// DisplayName returns the English name of the language, "Unknown" for empty
// input and the upper-cased input when it cannot be parsed.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	normalized := Normalize(trimmed)
	if normalized == "" {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Languages().Name(xlang.Make(normalized)); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}
