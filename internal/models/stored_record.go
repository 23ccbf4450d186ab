package models

import "time"

// StoredRecord is the relational shape of one key-value record when the
// storage driver is a SQL database. Kind and RecordKey form the logical key.
type StoredRecord struct {
	ID        uint      `gorm:"primarykey"`
	Kind      string    `gorm:"uniqueIndex:idx_kind_key;size:64;not null"`
	RecordKey string    `gorm:"uniqueIndex:idx_kind_key;size:255;not null"`
	Payload   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`
}

// TableName sets the table name.
func (StoredRecord) TableName() string {
	return "stored_records"
}
