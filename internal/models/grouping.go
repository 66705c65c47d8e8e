package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Grouping - двухуровневая группировка дата -> фирма -> []CleanedEntry.
//
// Контракт порядка:
//   - даты и фирмы идут в порядке первого появления (порядок вставки);
//   - сортировка не выполняется никогда: порядок наследуется от ORDER BY запроса;
//   - JSON-кодирование сохраняет тот же порядок ключей.
//
// После публикации в кэш Grouping не мутируется и безопасна для
// конкурентного чтения.
type Grouping struct {
	dates *orderedmap.OrderedMap[string, *FirmGroup]
}

// FirmGroup - второй уровень группировки: фирма -> записи.
type FirmGroup struct {
	firms *orderedmap.OrderedMap[string, []CleanedEntry]
}

// NewGrouping создаёт пустую группировку.
func NewGrouping() *Grouping {
	return &Grouping{dates: orderedmap.New[string, *FirmGroup]()}
}

func newFirmGroup() *FirmGroup {
	return &FirmGroup{firms: orderedmap.New[string, []CleanedEntry]()}
}

// Append добавляет запись, создавая корзины даты и фирмы при первом появлении.
func (g *Grouping) Append(date, firm string, e CleanedEntry) {
	fg, ok := g.dates.Get(date)
	if !ok {
		fg = newFirmGroup()
		g.dates.Set(date, fg)
	}

	entries, _ := fg.firms.Get(firm)
	fg.firms.Set(firm, append(entries, e))
}

// Len возвращает число дат.
func (g *Grouping) Len() int {
	if g == nil || g.dates == nil {
		return 0
	}

	return g.dates.Len()
}

// Count возвращает общее число записей во всех корзинах.
func (g *Grouping) Count() int {
	if g == nil || g.dates == nil {
		return 0
	}

	n := 0
	for d := g.dates.Oldest(); d != nil; d = d.Next() {
		for f := d.Value.firms.Oldest(); f != nil; f = f.Next() {
			n += len(f.Value)
		}
	}

	return n
}

// Dates возвращает даты в порядке вставки.
func (g *Grouping) Dates() []string {
	if g == nil || g.dates == nil {
		return nil
	}

	out := make([]string, 0, g.dates.Len())
	for p := g.dates.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}

	return out
}

// Firms возвращает фирмы даты в порядке вставки.
func (g *Grouping) Firms(date string) []string {
	if g == nil || g.dates == nil {
		return nil
	}

	fg, ok := g.dates.Get(date)
	if !ok {
		return nil
	}

	out := make([]string, 0, fg.firms.Len())
	for p := fg.firms.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}

	return out
}

// Entries возвращает записи корзины (date, firm) или nil.
func (g *Grouping) Entries(date, firm string) []CleanedEntry {
	if g == nil || g.dates == nil {
		return nil
	}

	fg, ok := g.dates.Get(date)
	if !ok {
		return nil
	}

	entries, _ := fg.firms.Get(firm)
	return entries
}

// MarshalJSON кодирует группировку компактно, в порядке вставки:
// {"<date>":{"<firm>":[{"title","link","writer"}]}}.
func (g *Grouping) MarshalJSON() ([]byte, error) {
	if g.dates == nil {
		return []byte("{}"), nil
	}

	return g.dates.MarshalJSON()
}

// UnmarshalJSON восстанавливает группировку с сохранением порядка ключей.
func (g *Grouping) UnmarshalJSON(b []byte) error {
	g.dates = orderedmap.New[string, *FirmGroup]()
	return g.dates.UnmarshalJSON(b)
}

// MarshalJSON кодирует корзину фирм в порядке вставки.
func (fg *FirmGroup) MarshalJSON() ([]byte, error) {
	if fg.firms == nil {
		return []byte("{}"), nil
	}

	return fg.firms.MarshalJSON()
}

// UnmarshalJSON восстанавливает корзину фирм с сохранением порядка.
func (fg *FirmGroup) UnmarshalJSON(b []byte) error {
	fg.firms = orderedmap.New[string, []CleanedEntry]()
	return fg.firms.UnmarshalJSON(b)
}
