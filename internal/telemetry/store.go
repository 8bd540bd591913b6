package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/TWRT/task-manager/internal/models"
	"github.com/TWRT/task-manager/internal/repository"
	"github.com/TWRT/task-manager/internal/service"
)

const storeScopeName = "github.com/TWRT/task-manager/store"

// InstrumentedStore wraps a service.TaskStore with a span and
// tasks.store.* metrics per operation.
type InstrumentedStore struct {
	inner  service.TaskStore
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

func WrapStore(s service.TaskStore) *InstrumentedStore {
	m := Meter(storeScopeName)
	ops, _ := m.Int64Counter("tasks.store.operations",
		metric.WithDescription("Total task store operations executed"),
	)
	dur, _ := m.Float64Histogram("tasks.store.operation.duration",
		metric.WithDescription("Task store operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("tasks.store.errors",
		metric.WithDescription("Total task store operation errors"),
	)
	return &InstrumentedStore{
		inner:  s,
		tracer: Tracer(storeScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

func (s *InstrumentedStore) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("db.operation", name)}, attrs...)
	ctx, span := s.tracer.Start(ctx, "store."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	s.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (s *InstrumentedStore) done(ctx context.Context, span trace.Span, start time.Time, name string, err error) {
	attrs := metric.WithAttributes(attribute.String("db.operation", name))
	s.dur.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.errs.Add(ctx, 1, attrs)
	}
	span.End()
}

func (s *InstrumentedStore) LoadTask(ctx context.Context, id string) (*models.Task, error) {
	ctx, span, start := s.op(ctx, "load_task", attribute.String("task.id", id))
	task, err := s.inner.LoadTask(ctx, id)
	s.done(ctx, span, start, "load_task", err)
	return task, err
}

func (s *InstrumentedStore) SaveTask(ctx context.Context, task *models.Task) error {
	ctx, span, start := s.op(ctx, "save_task",
		attribute.String("task.id", task.Id),
		attribute.Int64("task.version", task.Version),
	)
	err := s.inner.SaveTask(ctx, task)
	s.done(ctx, span, start, "save_task", err)
	return err
}

func (s *InstrumentedStore) DeleteTask(ctx context.Context, id string) error {
	ctx, span, start := s.op(ctx, "delete_task", attribute.String("task.id", id))
	err := s.inner.DeleteTask(ctx, id)
	s.done(ctx, span, start, "delete_task", err)
	return err
}

func (s *InstrumentedStore) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]models.Task, error) {
	ctx, span, start := s.op(ctx, "list_tasks", attribute.Bool("filter.assigned", filter.AssignedTo != ""))
	tasks, err := s.inner.ListTasks(ctx, filter)
	span.SetAttributes(attribute.Int("result.count", len(tasks)))
	s.done(ctx, span, start, "list_tasks", err)
	return tasks, err
}
