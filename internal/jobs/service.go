// Package jobs provides the intake and inspection-recording service around
// the job aggregate.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"qcflow/internal/parts"
	"qcflow/internal/services"
	"qcflow/internal/store"
	"qcflow/internal/tolerance"
)

// Service handles job intake, dimension plans, and measurement reports.
type Service struct {
	store    *store.Store
	registry *parts.Registry
	logger   *slog.Logger
}

// NewService builds a job service.
func NewService(st *store.Store, registry *parts.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, registry: registry, logger: logger}
}

// CreateInput describes a new job.
type CreateInput struct {
	PONumber            string
	CustomerRef         string
	PartNumber          string
	PartRevision        string
	PartDescription     string
	Quantity            int
	DueDate             *time.Time
	DrawingNumber       string
	SpecialRequirements string
	Actor               string
	Dimensions          []DimensionInput
}

// DimensionInput describes one measurable feature to record on a job.
type DimensionInput struct {
	Name             string
	Nominal          float64
	TolerancePlus    *float64
	ToleranceMinus   *float64
	Unit             string
	DrawingReference string
	Critical         bool
}

// MeasurementInput is one recorded value against a dimension.
type MeasurementInput struct {
	DimensionID  int64
	ActualValue  float64
	Equipment    string
	SampleNumber int
	MeasuredBy   string
	Notes        string
}

// Create registers the part identity, assigns the next job number, and
// persists the job with its initial dimension plan.
func (s *Service) Create(ctx context.Context, input CreateInput) (*store.Job, error) {
	if input.PONumber == "" {
		return nil, services.Wrap(services.ErrValidation, "jobs", "create", "po number is required", nil)
	}
	if input.Quantity <= 0 {
		return nil, services.Wrap(services.ErrValidation, "jobs", "create", "quantity must be positive", nil)
	}

	dims := make([]*store.Dimension, 0, len(input.Dimensions))
	for _, dimInput := range input.Dimensions {
		dim, err := buildDimension(dimInput)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dim)
	}

	part, partCreated, err := s.registry.ResolveOrCreate(ctx, input.PartNumber, input.PartRevision, input.PartDescription)
	if err != nil {
		return nil, err
	}

	jobNumber, err := s.store.NextJobNumber(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "create", "assign job number", err)
	}

	job, err := s.store.CreateJobWithDimensions(ctx, &store.Job{
		PONumber:            input.PONumber,
		JobNumber:           jobNumber,
		CustomerRef:         input.CustomerRef,
		PartID:              part.ID,
		PartNumber:          part.Number,
		PartRevision:        part.Revision,
		PartDescription:     part.Description,
		Quantity:            input.Quantity,
		DueDate:             input.DueDate,
		DrawingNumber:       input.DrawingNumber,
		SpecialRequirements: input.SpecialRequirements,
	}, dims, store.AuditEntry{
		Actor:       input.Actor,
		Action:      "create",
		EntityType:  "job",
		Description: fmt.Sprintf("Job %s created for part %s", jobNumber, part.Number),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "create", "persist job", err)
	}

	s.logger.Info("job created",
		slog.String("job", job.JobNumber),
		slog.String("part", part.Number),
		slog.Bool("part_created", partCreated),
		slog.Int("quantity", job.Quantity))
	return job, nil
}

// EditInput carries the editable job fields. The part identity may change; it
// is re-resolved through the registry.
type EditInput struct {
	PONumber            string
	CustomerRef         string
	PartNumber          string
	PartRevision        string
	PartDescription     string
	Quantity            int
	DueDate             *time.Time
	DrawingNumber       string
	SpecialRequirements string
	Actor               string
}

// Edit updates a job's details. Stage and completion state are untouched.
func (s *Service) Edit(ctx context.Context, jobID int64, input EditInput) (*store.Job, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if input.PONumber == "" {
		return nil, services.Wrap(services.ErrValidation, "jobs", "edit", "po number is required", nil)
	}
	if input.Quantity <= 0 {
		return nil, services.Wrap(services.ErrValidation, "jobs", "edit", "quantity must be positive", nil)
	}

	part, _, err := s.registry.ResolveOrCreate(ctx, input.PartNumber, input.PartRevision, input.PartDescription)
	if err != nil {
		return nil, err
	}

	job.PONumber = input.PONumber
	job.CustomerRef = input.CustomerRef
	job.PartID = part.ID
	job.PartNumber = part.Number
	job.PartRevision = part.Revision
	job.PartDescription = part.Description
	job.Quantity = input.Quantity
	job.DueDate = input.DueDate
	job.DrawingNumber = input.DrawingNumber
	job.SpecialRequirements = input.SpecialRequirements

	if err := s.store.UpdateJobDetails(ctx, job); err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "edit", "persist job", err)
	}
	if err := s.store.RecordAudit(ctx, store.AuditEntry{
		Actor:       input.Actor,
		Action:      "update",
		EntityType:  "job",
		EntityID:    job.ID,
		Description: "Job details updated",
	}); err != nil {
		s.logger.Warn("audit write failed", slog.String("error", err.Error()))
	}
	return s.Get(ctx, jobID)
}

// Get fetches a job by identifier.
func (s *Service) Get(ctx context.Context, id int64) (*store.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "get", "lookup failed", err)
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "jobs", "get", "job not found", nil)
	}
	return job, nil
}

// GetByNumber fetches a job by its internal job number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*store.Job, error) {
	job, err := s.store.GetJobByNumber(ctx, number)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "get", "lookup failed", err)
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "jobs", "get",
			fmt.Sprintf("no job %s", number), nil)
	}
	return job, nil
}

// List returns jobs filtered by stages, or all jobs when none given.
func (s *Service) List(ctx context.Context, stages ...store.Stage) ([]*store.Job, error) {
	list, err := s.store.ListJobs(ctx, stages...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "list", "query failed", err)
	}
	return list, nil
}

// buildDimension validates a dimension input and fills in defaults.
func buildDimension(input DimensionInput) (*store.Dimension, error) {
	if input.Name == "" {
		return nil, services.Wrap(services.ErrValidation, "jobs", "add-dimension", "dimension name is required", nil)
	}
	unit := input.Unit
	if unit == "" {
		unit = "mm"
	}
	return &store.Dimension{
		Name:             input.Name,
		Nominal:          input.Nominal,
		TolerancePlus:    input.TolerancePlus,
		ToleranceMinus:   input.ToleranceMinus,
		Unit:             unit,
		DrawingReference: input.DrawingReference,
		Critical:         input.Critical,
	}, nil
}

// AddDimension appends one dimension to a job's plan.
func (s *Service) AddDimension(ctx context.Context, jobID int64, input DimensionInput) (*store.Dimension, error) {
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, err
	}
	dim, err := buildDimension(input)
	if err != nil {
		return nil, err
	}
	dim.JobID = jobID
	dim, err = s.store.AddDimension(ctx, dim)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "add-dimension", "persist dimension", err)
	}
	return dim, nil
}

// DeleteDimension removes a dimension from a job's plan.
func (s *Service) DeleteDimension(ctx context.Context, jobID, dimID int64) error {
	deleted, err := s.store.DeleteDimension(ctx, jobID, dimID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "jobs", "delete-dimension", "delete failed", err)
	}
	if !deleted {
		return services.Wrap(services.ErrNotFound, "jobs", "delete-dimension", "dimension not found on job", nil)
	}
	return nil
}

// CopyDimensions copies the source job's dimension plan onto the destination,
// appending after its existing dimensions.
func (s *Service) CopyDimensions(ctx context.Context, dstJobID, srcJobID int64) (int, error) {
	if _, err := s.Get(ctx, dstJobID); err != nil {
		return 0, err
	}
	if _, err := s.Get(ctx, srcJobID); err != nil {
		return 0, err
	}
	copied, err := s.store.CopyDimensions(ctx, dstJobID, srcJobID)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "jobs", "copy-dimensions", "copy failed", err)
	}
	return copied, nil
}

// Dimensions lists a job's dimension plan.
func (s *Service) Dimensions(ctx context.Context, jobID int64) ([]*store.Dimension, error) {
	dims, err := s.store.ListDimensions(ctx, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "dimensions", "query failed", err)
	}
	return dims, nil
}

// RecordMeasurements opens a measurement report, evaluates every value against
// its dimension's tolerance band, and stores the derived overall verdict: fail
// if any measurement fails, pass otherwise, pending when nothing was recorded.
func (s *Service) RecordMeasurements(ctx context.Context, jobID int64, reportType, inspector, notes string, inputs []MeasurementInput) (*store.MeasurementReport, error) {
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, err
	}
	if reportType == "" {
		reportType = "in_process"
	}

	dims, err := s.Dimensions(ctx, jobID)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*store.Dimension, len(dims))
	for _, dim := range dims {
		byID[dim.ID] = dim
	}

	// Evaluate the whole batch before writing anything so a bad input never
	// leaves a report shell behind.
	status := store.ReportPending
	measurements := make([]*store.Measurement, 0, len(inputs))
	for _, input := range inputs {
		dim, ok := byID[input.DimensionID]
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "jobs", "measure",
				fmt.Sprintf("dimension %d does not belong to job", input.DimensionID), nil)
		}
		verdict := tolerance.Evaluate(tolerance.Dimension{
			Nominal:        dim.Nominal,
			TolerancePlus:  dim.TolerancePlus,
			ToleranceMinus: dim.ToleranceMinus,
			Unit:           dim.Unit,
		}, input.ActualValue)

		measurements = append(measurements, &store.Measurement{
			DimensionID:  input.DimensionID,
			ActualValue:  input.ActualValue,
			PassFail:     string(verdict),
			Equipment:    input.Equipment,
			SampleNumber: input.SampleNumber,
			MeasuredBy:   input.MeasuredBy,
			Notes:        input.Notes,
		})

		if verdict == tolerance.Fail {
			status = store.ReportFail
		} else if status == store.ReportPending {
			status = store.ReportPass
		}
	}

	report, err := s.store.CreateMeasurementReport(ctx, &store.MeasurementReport{
		JobID:         jobID,
		ReportType:    reportType,
		Inspector:     inspector,
		OverallStatus: status,
		Notes:         notes,
	}, measurements)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "measure", "persist report", err)
	}
	return report, nil
}

// Measurements lists a report's recorded values.
func (s *Service) Measurements(ctx context.Context, reportID int64) ([]*store.Measurement, error) {
	ms, err := s.store.ListMeasurements(ctx, reportID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "measurements", "query failed", err)
	}
	return ms, nil
}

// Reports lists a job's measurement reports.
func (s *Service) Reports(ctx context.Context, jobID int64) ([]*store.MeasurementReport, error) {
	reports, err := s.store.ListMeasurementReports(ctx, jobID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "jobs", "reports", "query failed", err)
	}
	return reports, nil
}
