// redact маскирует секреты перед записью в лог.
package redact

import "net/url"

// URL возвращает адрес подключения без пароля (user:xxxxx@host).
// Неразбираемая строка целиком заменяется на "***".
func URL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}

	q := u.Query()
	for _, k := range []string{"password", "sslpassword"} {
		if q.Has(k) {
			q.Set(k, "xxxxx")
		}
	}
	u.RawQuery = q.Encode()

	return u.Redacted()
}

// Secret заменяет значение ключа или токена.
func Secret(s string) string {
	if s == "" {
		return ""
	}
	return "[REDACTED_SECRET]"
}
