package resource

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

type (
	// Repository stores resource collections. Unknown resources behave as empty collections.
	Repository interface {
		Resources(ctx context.Context) ([]string, error)
		// QueryRecords returns the collection in insertion order.
		QueryRecords(ctx context.Context, resource string) ([]Record, error)
		// GetRecord fails with core.NotFoundError.
		GetRecord(ctx context.Context, resource string, id int64) (Record, error)
		// CreateRecord assigns an ID that does not collide with the collection's records.
		CreateRecord(ctx context.Context, resource string, fields Fields) (Record, error)
		// UpdateRecord merges fields into the record. Fails with core.NotFoundError.
		UpdateRecord(ctx context.Context, resource string, id int64, fields Fields) (Record, error)
		// DeleteRecord removes and returns the record. Fails with core.NotFoundError.
		DeleteRecord(ctx context.Context, resource string, id int64) (Record, error)
	}

	Options struct {
		// Latency is waited before every operation (mock backends).
		Latency time.Duration
	}

	// Service is the generic data provider.
	Service struct {
		repo    Repository
		logger  core.Logger
		latency time.Duration
	}
)

var errResourceRequired = core.NewValidationError(nil, core.FieldError{Field: "resource", Error: "this field is required"})

func NewService(repo Repository, logger core.Logger, opts Options) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		latency: opts.Latency,
	}
}

func (svc *Service) wait(ctx context.Context) error {
	if svc.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(svc.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (svc *Service) prepare(ctx context.Context, name string) (string, error) {
	name = core.CleanString(name, true /* lower */)
	if name == "" {
		return "", errResourceRequired
	}
	return name, svc.wait(ctx)
}

func (svc *Service) Resources(ctx context.Context) ([]string, error) {
	if err := svc.wait(ctx); err != nil {
		return nil, err
	}
	names, err := svc.repo.Resources(ctx)
	return names, errors.Wrap(err, "querying resources")
}

// List filters, sorts, then paginates the collection. Total is the number of
// records matching the filters.
func (svc *Service) List(ctx context.Context, name string, params ListParams) (ListResult, error) {
	name, err := svc.prepare(ctx, name)
	if err != nil {
		return ListResult{}, err
	}
	for _, f := range params.Filters {
		if f.Operator != "" && !IsOperator(f.Operator) {
			return ListResult{}, core.NewValidationError(nil, core.FieldError{Field: f.Field, Error: "unknown operator " + f.Operator})
		}
	}

	records, err := svc.repo.QueryRecords(ctx, name)
	if err != nil {
		return ListResult{}, errors.Wrapf(err, "querying %s", name)
	}

	records = applyFilters(records, params.Filters)
	applySorters(records, params.Sorters)
	total := len(records)
	data := paginate(records, params.Pagination)
	if data == nil {
		data = []Record{}
	}
	return ListResult{Data: data, Total: total}, nil
}

// GetOne returns nil when no record has that id.
func (svc *Service) GetOne(ctx context.Context, name string, id int64) (*Record, error) {
	name, err := svc.prepare(ctx, name)
	if err != nil {
		return nil, err
	}
	rec, err := svc.repo.GetRecord(ctx, name, id)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "getting %s %d", name, id)
	}
	return &rec, nil
}

// Create ignores any id in fields.
func (svc *Service) Create(ctx context.Context, name string, fields Fields) (Record, error) {
	name, err := svc.prepare(ctx, name)
	if err != nil {
		return Record{}, err
	}
	rec, err := svc.repo.CreateRecord(ctx, name, fields.withoutID())
	if err != nil {
		return Record{}, errors.Wrapf(err, "creating %s", name)
	}
	svc.logger.Debug("record created", map[string]interface{}{"resource": name, "id": rec.ID})
	return rec, nil
}

func (svc *Service) Update(ctx context.Context, name string, id int64, fields Fields) (Record, error) {
	name, err := svc.prepare(ctx, name)
	if err != nil {
		return Record{}, err
	}
	rec, err := svc.repo.UpdateRecord(ctx, name, id, fields.withoutID())
	if err != nil {
		if core.IsNotFound(err) {
			return Record{}, err
		}
		return Record{}, errors.Wrapf(err, "updating %s %d", name, id)
	}
	return rec, nil
}

func (svc *Service) Delete(ctx context.Context, name string, id int64) (Record, error) {
	name, err := svc.prepare(ctx, name)
	if err != nil {
		return Record{}, err
	}
	rec, err := svc.repo.DeleteRecord(ctx, name, id)
	if err != nil {
		if core.IsNotFound(err) {
			return Record{}, err
		}
		return Record{}, errors.Wrapf(err, "deleting %s %d", name, id)
	}
	svc.logger.Debug("record deleted", map[string]interface{}{"resource": name, "id": rec.ID})
	return rec, nil
}
