package domain

// ProductRecord: строка файла описаний товаров: GTIN; описание; количество.
type ProductRecord struct {
	GTIN        string `json:"gtin"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}
