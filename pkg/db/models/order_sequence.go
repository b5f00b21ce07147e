package models

// OrderSequence is the per (prefix, day) counter behind order numbers.
type OrderSequence struct {
	Prefix    string `gorm:"column:prefix;primaryKey"`
	SeqDate   string `gorm:"column:seq_date;primaryKey"`
	LastValue int64  `gorm:"column:last_value;not null"`
}
