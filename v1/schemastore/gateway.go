package schemastore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
	"github.com/Aleph-Alpha/registry-serde/v1/schema_registry"
)

var _ schema_registry.Gateway = (*Store)(nil)

// Register implements schema_registry.Gateway. Registrations of one subject
// are serialized with a transaction scoped advisory lock. A unique violation
// from a writer that bypassed the lock is retried once.
func (s *Store) Register(ctx context.Context, subject, text string) (id int, err error) {
	start := time.Now()
	defer func() { s.observeOperation("register", subject, time.Since(start), err) }()

	schema, err := schema_registry.ParseSchema(text)
	if err != nil {
		return 0, err
	}

	for attempt := 0; ; attempt++ {
		id, err = s.register(ctx, subject, schema)
		if err == nil || attempt > 0 || !isUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return 0, s.storeError(ctx, "register", err)
	}
	return id, nil
}

func (s *Store) register(ctx context.Context, subject string, schema *avro.Schema) (id int, err error) {
	fingerprint := schema.Fingerprint().String()

	err = s.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", subject).Error; err != nil {
			return err
		}

		versions, err := subjectVersions(tx, subject)
		if err != nil {
			return err
		}
		for _, v := range versions {
			if v.Fingerprint == fingerprint {
				id = v.SchemaID
				return nil
			}
		}

		next := 1
		if n := len(versions); n > 0 {
			latest := versions[n-1]
			if err := s.checkAgainst(tx, subject, schema, latest); err != nil {
				return err
			}
			next = latest.Version + 1
		}

		schemaID, err := upsertSchema(tx, fingerprint, schema.Text())
		if err != nil {
			return err
		}
		if err := tx.Create(&subjectVersionRow{Subject: subject, Version: next, SchemaID: schemaID}).Error; err != nil {
			return err
		}
		id = schemaID
		return nil
	})
	return id, err
}

// SchemaByID implements schema_registry.Gateway.
func (s *Store) SchemaByID(ctx context.Context, id int) (text string, err error) {
	start := time.Now()
	defer func() { s.observeOperation("get_schema_by_id", strconv.Itoa(id), time.Since(start), err) }()

	var row schemaRow
	if err := s.DB().WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", schema_registry.NewSchemaNotFoundError("Schema " + strconv.Itoa(id) + " not found")
		}
		return "", s.storeError(ctx, "get_schema_by_id", err)
	}
	return row.Schema, nil
}

// LatestVersion implements schema_registry.Gateway.
func (s *Store) LatestVersion(ctx context.Context, subject string) (meta schema_registry.SchemaMetadata, err error) {
	start := time.Now()
	defer func() { s.observeOperation("get_latest_version", subject, time.Since(start), err) }()

	var views []versionView
	err = versionQuery(s.DB().WithContext(ctx), subject).
		Order("v.version DESC").
		Limit(1).
		Scan(&views).Error
	if err != nil {
		return schema_registry.SchemaMetadata{}, s.storeError(ctx, "get_latest_version", err)
	}
	if len(views) == 0 {
		return schema_registry.SchemaMetadata{}, schema_registry.NewSubjectNotFoundError(subject)
	}
	return views[0].metadata(subject), nil
}

// LookupVersion implements schema_registry.Gateway.
func (s *Store) LookupVersion(ctx context.Context, subject, text string) (meta schema_registry.SchemaMetadata, err error) {
	start := time.Now()
	defer func() { s.observeOperation("lookup_version", subject, time.Since(start), err) }()

	schema, err := schema_registry.ParseSchema(text)
	if err != nil {
		return schema_registry.SchemaMetadata{}, err
	}

	versions, err := subjectVersions(s.DB().WithContext(ctx), subject)
	if err != nil {
		return schema_registry.SchemaMetadata{}, s.storeError(ctx, "lookup_version", err)
	}
	if len(versions) == 0 {
		return schema_registry.SchemaMetadata{}, schema_registry.NewSubjectNotFoundError(subject)
	}

	fingerprint := schema.Fingerprint().String()
	for _, v := range versions {
		if v.Fingerprint == fingerprint {
			return v.metadata(subject), nil
		}
	}
	return schema_registry.SchemaMetadata{}, schema_registry.NewSchemaNotFoundError("Schema not found")
}

// TestCompatibility implements schema_registry.Gateway.
func (s *Store) TestCompatibility(ctx context.Context, subject, text, version string) (ok bool, err error) {
	start := time.Now()
	defer func() { s.observeOperation("test_compatibility", subject, time.Since(start), err) }()

	schema, err := schema_registry.ParseSchema(text)
	if err != nil {
		return false, err
	}

	db := s.DB().WithContext(ctx)
	versions, err := subjectVersions(db, subject)
	if err != nil {
		return false, s.storeError(ctx, "test_compatibility", err)
	}
	if len(versions) == 0 {
		return false, schema_registry.NewSubjectNotFoundError(subject)
	}

	n, err := schema_registry.ResolveVersion(version, len(versions))
	if err != nil {
		return false, err
	}

	err = s.checkAgainst(db, subject, schema, versions[n-1])
	var regErr *schema_registry.RegistryError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &regErr) && regErr.ErrorCode == schema_registry.ErrorCodeIncompatibleSchema:
		return false, nil
	default:
		return false, s.storeError(ctx, "test_compatibility", err)
	}
}

// UpdateCompatibility implements schema_registry.Gateway.
func (s *Store) UpdateCompatibility(ctx context.Context, subject string, level schema_registry.CompatibilityLevel) (updated schema_registry.CompatibilityLevel, err error) {
	start := time.Now()
	defer func() { s.observeOperation("update_compatibility", subject, time.Since(start), err) }()

	if !level.Valid() {
		return "", schema_registry.NewInvalidCompatibilityError()
	}

	row := configRow{Subject: subject, Compatibility: string(level)}
	err = s.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject"}},
		DoUpdates: clause.AssignmentColumns([]string{"compatibility", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return "", s.storeError(ctx, "update_compatibility", err)
	}
	return level, nil
}

// Compatibility implements schema_registry.Gateway. A subject without its
// own level reports the global one, which defaults to BACKWARD.
func (s *Store) Compatibility(ctx context.Context, subject string) (level schema_registry.CompatibilityLevel, err error) {
	start := time.Now()
	defer func() { s.observeOperation("get_compatibility", subject, time.Since(start), err) }()

	level, err = effectiveLevel(s.DB().WithContext(ctx), subject)
	if err != nil {
		return "", s.storeError(ctx, "get_compatibility", err)
	}
	return level, nil
}

// checkAgainst applies the effective level of subject to candidate and the
// stored version.
func (s *Store) checkAgainst(db *gorm.DB, subject string, candidate *avro.Schema, stored versionView) error {
	existing, err := avro.Parse(stored.Schema)
	if err != nil {
		return schema_registry.NewBackendStoreError(err)
	}
	level, err := effectiveLevel(db, subject)
	if err != nil {
		return err
	}
	if err := schema_registry.CheckLevel(level, candidate, existing); err != nil {
		return schema_registry.NewIncompatibleSchemaError(err)
	}
	return nil
}

// storeError passes registry errors through and reports everything else as
// a backend failure.
func (s *Store) storeError(ctx context.Context, operation string, err error) error {
	var regErr *schema_registry.RegistryError
	if errors.As(err, &regErr) {
		return regErr
	}
	s.logWarn(ctx, "schema store operation failed", err, map[string]interface{}{"operation": operation})
	return schema_registry.NewBackendStoreError(err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func versionQuery(db *gorm.DB, subject string) *gorm.DB {
	return db.Table("registry_subject_versions AS v").
		Select("v.version, v.schema_id, s.fingerprint, s.schema").
		Joins("JOIN registry_schemas AS s ON s.id = v.schema_id").
		Where("v.subject = ?", subject)
}

func subjectVersions(db *gorm.DB, subject string) ([]versionView, error) {
	var views []versionView
	if err := versionQuery(db, subject).Order("v.version").Scan(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

// upsertSchema returns the id of the schema with fingerprint, inserting it
// first when it is new.
func upsertSchema(tx *gorm.DB, fingerprint, text string) (int, error) {
	row := schemaRow{Fingerprint: fingerprint, Schema: text}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return 0, err
	}
	if row.ID != 0 {
		return row.ID, nil
	}

	if err := tx.Where("fingerprint = ?", fingerprint).First(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

func effectiveLevel(db *gorm.DB, subject string) (schema_registry.CompatibilityLevel, error) {
	var rows []configRow
	if err := db.Where("subject IN ?", []string{subject, ""}).Find(&rows).Error; err != nil {
		return "", err
	}

	level := schema_registry.DefaultCompatibility
	for _, row := range rows {
		if row.Subject == subject {
			return schema_registry.CompatibilityLevel(row.Compatibility), nil
		}
		level = schema_registry.CompatibilityLevel(row.Compatibility)
	}
	return level, nil
}

func (v versionView) metadata(subject string) schema_registry.SchemaMetadata {
	return schema_registry.SchemaMetadata{
		Subject: subject,
		ID:      v.SchemaID,
		Version: v.Version,
		Schema:  v.Schema,
	}
}
