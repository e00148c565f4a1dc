package llm

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"go-passport-recognizer/ocrv2"
)

var promptMatcher = language.NewMatcher([]language.Tag{language.English, language.Russian})

const keysAnswerFormat = `Return STRICT JSON only.

Either:
{"document_number":"...","date_of_birth":"YYYY-MM-DD","date_of_expiry":"YYYY-MM-DD"}

Or:
{"error":{"code":"MRZ_NOT_FOUND","message":"..."}}
`

const keysPromptRU = "Ты распознаёшь загранпаспорт (eMRTD).\nИзвлеки BAC/MRZ keys.\n\n" + keysAnswerFormat

const keysPromptEN = "You parse a passport (eMRTD).\nExtract BAC/MRZ keys.\n\n" + keysAnswerFormat

// IsRussian reports whether the language tag resolves to Russian. Unknown or
// malformed tags resolve to English.
func IsRussian(lang string) bool {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return false
	}
	_, index, confidence := promptMatcher.Match(tag)
	return index == 1 && confidence != language.No
}

// BuildPrompt returns the prompt asking for the three BAC keys only.
func BuildPrompt(lang string) string {
	if IsRussian(lang) {
		return keysPromptRU
	}
	return keysPromptEN
}

// BuildPromptV2 returns the prompt asking for every data page field together
// with confidences, bounding boxes and the MRZ lines.
func BuildPromptV2(lang string) string {
	var b strings.Builder
	if IsRussian(lang) {
		b.WriteString("Ты распознаёшь страницу данных паспорта.\n")
		b.WriteString("Для каждого поля укажи значение, уверенность от 0 до 1, зоны на изображении, тип текста и язык.\n\n")
	} else {
		b.WriteString("You read the data page of a passport.\n")
		b.WriteString("For every field give its value, a confidence between 0 and 1, its zones on the image, the text type and the language.\n\n")
	}

	b.WriteString("Return STRICT JSON only:\n{\n  \"fields\": {\n")
	for i, name := range ocrv2.FieldNames {
		value := "..."
		if strings.HasPrefix(name, "date_") {
			value = "YYYY-MM-DD"
		}
		sep := ","
		if i == len(ocrv2.FieldNames)-1 {
			sep = ""
		}
		fmt.Fprintf(&b, "    %q: {\"value\": %q, \"confidence\": 0.0, \"zones\": [{\"page\": 0, \"x\": 0, \"y\": 0, \"w\": 0, \"h\": 0}], \"text_type\": \"printed|handwritten|unknown\", \"language\": \"ru|en|null\"}%s\n", name, value, sep)
	}
	b.WriteString("  },\n")
	b.WriteString("  \"mrz\": {\"lines\": [\"...\", \"...\"], \"confidence\": 0.0, \"document_number\": \"...\", \"date_of_birth\": \"YYYY-MM-DD\", \"date_of_expiry\": \"YYYY-MM-DD\"},\n")
	b.WriteString("  \"checks\": [{\"code\": \"...\", \"status\": \"ok|warning|error\", \"message\": \"...\"}]\n")
	b.WriteString("}\n\nUse null for values that are not visible.\n")
	return b.String()
}
