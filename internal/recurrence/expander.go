package recurrence

import (
	"context"

	"github.com/benvon/task-manager/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Creator persists a single task exactly as given
type Creator interface {
	Create(ctx context.Context, task *models.Task) error
}

// Expander writes the occurrences of recurring tasks through a Creator
type Expander struct {
	creator Creator
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewExpander creates a new expander
func NewExpander(creator Creator, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{
		creator: creator,
		logger:  logger,
		tracer:  otel.Tracer("github.com/benvon/task-manager/internal/recurrence"),
	}
}

// ExpandAndCreate creates every occurrence of parent and returns the ids that
// were stored. ok is false only when parent has no due date. Occurrences are
// created one at a time in order; a failed occurrence is logged and skipped.
// Created tasks go straight to the Creator and are never expanded again.
func (e *Expander) ExpandAndCreate(ctx context.Context, parent *models.Task, rule Rule) (ids []uuid.UUID, ok bool) {
	ctx, span := e.tracer.Start(ctx, "recurrence.expand",
		trace.WithAttributes(attribute.String("recurrence.type", string(rule.Type))),
	)
	defer span.End()

	if parent == nil || parent.DueDate == nil {
		span.SetStatus(codes.Error, "parent has no due date")
		e.logger.Warn("recurrence_missing_due_date",
			zap.String("recurrence", string(rule.Type)),
		)
		return []uuid.UUID{}, false
	}

	children := Expand(parent, rule)
	truncated := Truncated(rule, *parent.DueDate)
	if truncated && len(children) > 0 {
		e.logger.Warn("recurrence_truncated",
			zap.String("parent_id", parent.ID.String()),
			zap.String("recurrence", string(rule.Type)),
			zap.Int("max_occurrences", MaxOccurrences),
			zap.String("end_date", rule.EndDate.String()),
			zap.String("last_due_date", children[len(children)-1].DueDate.String()),
		)
	}
	ids = make([]uuid.UUID, 0, len(children))
	failed := 0
	for i, child := range children {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("recurrence_expansion_cancelled",
				zap.String("parent_id", parent.ID.String()),
				zap.Int("created", len(ids)),
				zap.Error(err),
			)
			break
		}
		if err := e.creator.Create(ctx, child); err != nil {
			failed++
			e.logger.Warn("recurrence_instance_failed",
				zap.String("parent_id", parent.ID.String()),
				zap.Int("occurrence", i+1),
				zap.String("due_date", child.DueDate.String()),
				zap.Error(err),
			)
			continue
		}
		ids = append(ids, child.ID)
	}

	span.SetAttributes(
		attribute.Int("recurrence.planned", len(children)),
		attribute.Int("recurrence.created", len(ids)),
		attribute.Int("recurrence.failed", failed),
		attribute.Bool("recurrence.truncated", truncated),
	)
	e.logger.Info("recurrence_expanded",
		zap.String("parent_id", parent.ID.String()),
		zap.String("recurrence", string(rule.Type)),
		zap.Int("planned", len(children)),
		zap.Int("created", len(ids)),
		zap.Int("failed", failed),
		zap.Bool("recurrence_truncated", truncated),
	)
	return ids, true
}
