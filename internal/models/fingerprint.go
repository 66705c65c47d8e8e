package models

import "encoding/json"

// Fingerprint - значение MAX(save_time) по всей таблице в том виде, в каком его вернуло хранилище.
// Значение непрозрачно: формат save_time здесь не проверяется, сравнение строковое.
// Valid == false означает «таблица пуста» (или кэш ещё не заполнен).
type Fingerprint struct {
	Raw   string
	Valid bool
}

// NewFingerprint оборачивает сырое значение MAX(save_time).
func NewFingerprint(raw string) Fingerprint {
	return Fingerprint{Raw: raw, Valid: true}
}

// Equal сравнивает отпечатки; два отсутствующих отпечатка равны.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Valid == o.Valid && f.Raw == o.Raw
}

// String возвращает сырое значение или "" для отсутствующего отпечатка.
func (f Fingerprint) String() string {
	if !f.Valid {
		return ""
	}

	return f.Raw
}

// MarshalJSON кодирует отпечаток строкой либо null.
func (f Fingerprint) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}

	return json.Marshal(f.Raw)
}

// UnmarshalJSON - обратная операция к MarshalJSON.
func (f *Fingerprint) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Fingerprint{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	*f = NewFingerprint(s)
	return nil
}
