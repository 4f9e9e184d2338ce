// Package convert переводит коды маркировки РФ в формат, который проходит
// проверку в РБ: цифра страны после маркера "21" меняется с 5 на 2.
package convert

import "strings"

const (
	// SerialMarker: маркер, после которого стоит цифра юрисдикции.
	SerialMarker = "21"
	// SourceDigit: цифра юрисдикции РФ.
	SourceDigit = '5'
	// TargetDigit: цифра юрисдикции РБ.
	TargetDigit = '2'
)

// RewriteJurisdictionDigit заменяет цифру после первого вхождения "21",
// если это SourceDigit. В остальных случаях код возвращается без изменений,
// в том числе когда "21" стоит не там, где ожидается: формат кода не проверяется.
func RewriteJurisdictionDigit(code string) string {
	pos := strings.Index(code, SerialMarker)
	if pos == -1 {
		return code
	}
	at := pos + len(SerialMarker)
	if at >= len(code) || code[at] != SourceDigit {
		return code
	}
	return code[:at] + string(TargetDigit) + code[at+1:]
}

// All применяет RewriteJurisdictionDigit к каждому коду.
func All(codes []string) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = RewriteJurisdictionDigit(c)
	}
	return out
}

// Lines собирает коды в текст, по коду на строку.
func Lines(codes []string) string {
	var b strings.Builder
	for _, c := range codes {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	return b.String()
}
