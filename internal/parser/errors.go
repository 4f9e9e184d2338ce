package parser

import "fmt"

// MalformedRecordError: в строке меньше трёх полей.
type MalformedRecordError struct {
	Line int
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("неверный формат строки %d: ожидается формат 'GTIN; описание; количество'", e.Line)
}

func (*MalformedRecordError) Kind() string { return "malformed_record" }

// InvalidQuantityError: третье поле не является целым числом.
type InvalidQuantityError struct {
	Line int
	Raw  string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("неверное количество в строке %d: %q", e.Line, e.Raw)
}

func (*InvalidQuantityError) Kind() string { return "invalid_quantity" }

// DecodeError: содержимое файла не является корректным UTF-8.
type DecodeError struct {
	Field string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("ошибка чтения файла %s: содержимое не в кодировке UTF-8", e.Field)
}

func (*DecodeError) Kind() string { return "decode_error" }
