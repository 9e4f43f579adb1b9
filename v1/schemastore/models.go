package schemastore

import "time"

// schemaRow is one distinct schema. Ids are global and shared by every
// subject that registers the same canonical schema.
type schemaRow struct {
	ID          int    `gorm:"primaryKey;autoIncrement"`
	Fingerprint string `gorm:"size:64;not null;uniqueIndex"`
	Schema      string `gorm:"type:text;not null"`
	CreatedAt   time.Time
}

func (schemaRow) TableName() string { return "registry_schemas" }

type subjectVersionRow struct {
	Subject   string `gorm:"primaryKey;size:255"`
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	SchemaID  int    `gorm:"not null;index"`
	CreatedAt time.Time
}

func (subjectVersionRow) TableName() string { return "registry_subject_versions" }

// configRow stores a compatibility level. The empty subject is the global level.
type configRow struct {
	Subject       string `gorm:"primaryKey;size:255"`
	Compatibility string `gorm:"size:32;not null"`
	UpdatedAt     time.Time
}

func (configRow) TableName() string { return "registry_configs" }

// versionView is a subject version joined with its schema.
type versionView struct {
	Version     int
	SchemaID    int
	Fingerprint string
	Schema      string
}
