package types

// Item is the single persisted entity of a pantry. ID is assigned by the
// storage engine on creation and never changes afterwards.
type Item struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Date        *Date  `json:"date"`
}

// Clone returns a deep copy of the item. Nil-safe.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	c := *i
	if i.Date != nil {
		d := *i.Date
		c.Date = &d
	}
	return &c
}

// Equal reports whether two items hold the same id, description and date.
func (i *Item) Equal(o *Item) bool {
	if i == nil || o == nil {
		return i == o
	}
	if i.ID != o.ID || i.Description != o.Description {
		return false
	}
	if i.Date == nil || o.Date == nil {
		return i.Date == nil && o.Date == nil
	}
	return *i.Date == *o.Date
}
