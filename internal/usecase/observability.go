package usecase

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/service"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
)

var (
	tracer   = otel.Tracer("studyhub/usecase")
	validate = validator.New()
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errors.CodeOf(err))
	}
	span.End()
}

// validateInput runs struct tags and wraps failures as VALIDATION_ERROR.
func validateInput(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		return errors.Validation(fmt.Sprintf("Invalid input: %v", err), err)
	}
	return nil
}

// publish sends a domain event. Delivery is best-effort and never fails the caller.
func publish(ctx context.Context, events service.EventPublisher, event entity.DomainEvent) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		logger.Warn("event %s for doubt %s not published: %v", event.Type, event.DoubtID, err)
	}
}
