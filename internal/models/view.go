package models

// ViewID - идентификатор кэшируемого представления.
type ViewID string

const (
	// ViewRecent - «последние отчёты»: ключ даты берётся из save_time.
	ViewRecent ViewID = "recent"
	// ViewDaily - «отчёты по дням»: ключ даты берётся из reg_dt.
	ViewDaily ViewID = "daily"
)

// Views - все представления в порядке прогрева.
var Views = []ViewID{ViewRecent, ViewDaily}

// ParseViewID проверяет, что строка - известное представление.
func ParseViewID(s string) (ViewID, bool) {
	for _, v := range Views {
		if string(v) == s {
			return v, true
		}
	}

	return "", false
}
