// Package parser разбирает входные файлы: описания товаров и коды маркировки.
package parser

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Vasiliy82/eaeu-circulation/pkg/domain"
)

// Separator разделяет поля в файле описаний товаров.
const Separator = ";"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseRecords разбирает файл описаний: одна строка: "GTIN; описание; количество".
// Пустые строки пропускаются, лишние поля после третьего игнорируются.
// Номера строк в ошибках считаются с единицы по исходному тексту.
func ParseRecords(text string) ([]domain.ProductRecord, error) {
	var records []domain.ProductRecord
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lineNum := i + 1

		parts := strings.Split(line, Separator)
		if len(parts) < 3 {
			return nil, &MalformedRecordError{Line: lineNum}
		}

		raw := strings.TrimSpace(parts[2])
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &InvalidQuantityError{Line: lineNum, Raw: raw}
		}

		records = append(records, domain.ProductRecord{
			GTIN:        strings.TrimSpace(parts[0]),
			Description: strings.TrimSpace(parts[1]),
			Quantity:    qty,
		})
	}
	return records, nil
}

// ParseCodes разбирает файл кодов: одна непустая строка: один код.
// Структура кодов здесь не проверяется.
func ParseCodes(text string) []domain.Code {
	var codes []domain.Code
	for _, line := range strings.Split(text, "\n") {
		if code := strings.TrimSpace(line); code != "" {
			codes = append(codes, domain.Code(code))
		}
	}
	return codes
}

// DecodeUTF8 проверяет кодировку загруженного файла и убирает BOM.
func DecodeUTF8(field string, b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		return "", &DecodeError{Field: field}
	}
	return string(b), nil
}
