package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/nnnkkk7/sqlgateway/pkg/archive"
	"github.com/nnnkkk7/sqlgateway/pkg/classifier"
	"github.com/nnnkkk7/sqlgateway/pkg/config"
	"github.com/nnnkkk7/sqlgateway/pkg/observability"
	"github.com/nnnkkk7/sqlgateway/server/apierror"
)

// RowLimiter supplies the row cap applied to every row-producing execution.
type RowLimiter interface {
	MaxRows() int
}

// Executor runs SQL for an execution identifier and renders the result.
type Executor struct {
	registry *Registry
	limits   RowLimiter
	archiver archive.Archiver
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithArchiver stores every successful payload with a.
func WithArchiver(a archive.Archiver) Option {
	return func(e *Executor) {
		e.archiver = a
	}
}

// NewExecutor creates an executor that binds statements through registry.
func NewExecutor(registry *Registry, limits RowLimiter, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		limits:   limits,
		logger:   observability.OrNop(logger),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Interpret routes submitted text to its profile and executes it.
func (e *Executor) Interpret(ctx context.Context, text, executionID string) *ExecutionResult {
	sub := ParseSubmission(text)
	e.logger.Info("interpreting submission",
		slog.String("execution_id", executionID),
		slog.String("profile", sub.ProfileKey),
		slog.String("sql", sub.SQL),
	)
	return e.Execute(ctx, sub.ProfileKey, sub.SQL, executionID)
}

// Execute runs sql on profileKey for executionID. Failures are reported in the
// result, never returned or panicked. The binding of executionID is kept for reuse
// and cancellation.
func (e *Executor) Execute(ctx context.Context, profileKey, sql, executionID string) *ExecutionResult {
	start := time.Now()
	result := e.execute(ctx, profileKey, sql, executionID)
	observability.ObserveExecution(profileKey, string(result.Code), time.Since(start))

	if !result.Succeeded() {
		e.logger.Warn("execution failed",
			slog.String("execution_id", executionID),
			slog.String("profile", profileKey),
			slog.String("code", result.Error.Code),
			slog.String("error", result.Message),
		)
		return result
	}

	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, executionID, result.Message); err != nil {
			e.logger.Warn("archiving result failed",
				slog.String("execution_id", executionID),
				slog.String("error", err.Error()),
			)
		}
	}
	return result
}

func (e *Executor) execute(ctx context.Context, profileKey, sql, executionID string) *ExecutionResult {
	_, stmt, err := e.registry.Bind(ctx, executionID, profileKey)
	if err != nil {
		return errorResult(err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			_ = e.registry.closeFailure("statement", executionID, err)
		}
	}()

	stmt.SetMaxRows(e.limits.MaxRows())
	tableResponse := !classifier.IsExplain(sql)

	outcome, err := stmt.Execute(ctx, sql)
	if err != nil {
		return errorResult(apierror.WrapError(apierror.CodeStatementError, err))
	}

	if !outcome.HasRows() {
		return successResult(config.ResponseTypeText, UpdateCountMessage(outcome.UpdateCount))
	}
	defer outcome.Rows.Close()

	message, err := WriteTable(tableResponse, outcome.Rows)
	if err != nil {
		return errorResult(apierror.WrapError(apierror.CodeStatementError, err))
	}
	if !tableResponse {
		return successResult(config.ResponseTypeText, message)
	}
	return successResult(config.ResponseTypeTable, message)
}
