// Package backup writes and restores portable JSON snapshots of a user's tasks.
package backup

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "https://task-manager.local/schemas/backup.json"

// FilenameLayout formats the timestamp part of a backup file name
const FilenameLayout = "20060102150405"

// TaskStore reads and restores a user's tasks
type TaskStore interface {
	ListAll(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	Restore(ctx context.Context, userID uuid.UUID, tasks []*models.Task) (models.RestoreResult, error)
}

// RecordStore keeps the list of backups a user has taken
type RecordStore interface {
	Create(ctx context.Context, b *models.BackupRecord) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.BackupRecord, error)
}

// InvalidError is returned when a backup document fails validation
type InvalidError struct {
	Path    string
	Message string
}

func (e *InvalidError) Error() string {
	if e.Path == "" {
		return "invalid backup: " + e.Message
	}
	return fmt.Sprintf("invalid backup at %s: %s", e.Path, e.Message)
}

// Service creates and restores backups
type Service struct {
	tasks   TaskStore
	records RecordStore
	schema  *jsonschema.Schema
	now     func() time.Time
	logger  *zap.Logger
}

// NewService compiles the embedded document schema and returns a service
func NewService(tasks TaskStore, records RecordStore, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	return &Service{
		tasks:   tasks,
		records: records,
		schema:  schema,
		now:     time.Now,
		logger:  logger,
	}, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add backup schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile backup schema: %w", err)
	}
	return schema, nil
}

// Filename returns the download name of a backup taken at t
func Filename(t time.Time) string {
	return "backup_" + t.Format(FilenameLayout) + ".json"
}

// Create snapshots every task visible to userID, records the backup and
// returns the record together with the document bytes.
func (s *Service) Create(ctx context.Context, userID uuid.UUID) (*models.BackupRecord, []byte, error) {
	tasks, err := s.tasks.ListAll(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	now := s.now().UTC()
	doc := models.BackupDocument{
		Version:   models.BackupVersion,
		CreatedAt: now,
		UserID:    userID,
		Tasks:     tasks,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	record := &models.BackupRecord{
		UserID:    userID,
		Filename:  Filename(now),
		Size:      int64(len(data)),
		CreatedAt: now,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("failed to record backup: %w", err)
	}

	s.logger.Info("backup_created",
		zap.String("user_id", userID.String()),
		zap.String("filename", record.Filename),
		zap.Int("tasks", len(tasks)),
		zap.Int64("size", record.Size),
	)
	return record, data, nil
}

// List returns the backups taken by userID, newest first
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.BackupRecord, error) {
	records, err := s.records.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return records, nil
}

// Decode validates data against the backup schema and decodes it
func (s *Service) Decode(data []byte) (*models.BackupDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &InvalidError{Message: "not valid JSON: " + err.Error()}
	}
	if err := s.schema.Validate(raw); err != nil {
		return nil, schemaError(err)
	}

	var doc models.BackupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &InvalidError{Message: err.Error()}
	}
	return &doc, nil
}

// Restore validates data and upserts its tasks for userID in one
// transaction. Tasks outside the caller's scope are skipped.
func (s *Service) Restore(ctx context.Context, userID uuid.UUID, data []byte) (models.RestoreResult, error) {
	doc, err := s.Decode(data)
	if err != nil {
		return models.RestoreResult{}, err
	}
	for _, task := range doc.Tasks {
		if task != nil {
			task.Tags = models.NormalizeTags(task.Tags)
		}
	}

	res, err := s.tasks.Restore(ctx, userID, doc.Tasks)
	if err != nil {
		return models.RestoreResult{}, fmt.Errorf("failed to restore backup: %w", err)
	}
	s.logger.Info("backup_restored",
		zap.String("user_id", userID.String()),
		zap.Int("restored", res.Restored),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &InvalidError{Message: err.Error()}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	path := leaf.InstanceLocation
	if path == "" {
		path = "/"
	}
	return &InvalidError{Path: path, Message: leaf.Message}
}
