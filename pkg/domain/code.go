package domain

import "strings"

const (
	// GTINMarker: идентификатор применения, после которого в коде идёт GTIN.
	GTINMarker = "01"
	// GTINLength: ширина поля GTIN.
	GTINLength = 14
)

// Code: код идентификации в том виде, в котором его выдаёт эмитент.
// Структура кода не проверяется, интерпретируются только маркеры.
type Code string

// GTIN возвращает 14 символов, следующих за маркером "01".
// Код без маркера или короче маркера с полем не относится ни к одной группе.
func (c Code) GTIN() (string, bool) {
	s := string(c)
	if !strings.HasPrefix(s, GTINMarker) || len(s) < len(GTINMarker)+GTINLength {
		return "", false
	}
	return s[len(GTINMarker) : len(GTINMarker)+GTINLength], true
}

// Strings переводит коды в строки для транспорта.
func Strings(codes []Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}

// Codes: обратное преобразование к Strings.
func Codes(raw []string) []Code {
	out := make([]Code, len(raw))
	for i, s := range raw {
		out[i] = Code(s)
	}
	return out
}
