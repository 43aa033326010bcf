package store

import (
	"strings"
	"time"
)

// Stage represents the workflow stage of a job.
type Stage string

const (
	StagePOReceipt       Stage = "po_receipt"
	StageRevisionCheck   Stage = "revision_check"
	StageMaterialControl Stage = "material_control"
	StageInProcess       Stage = "in_process"
	StageExternalProcess Stage = "external_process"
	StageExitControl     Stage = "exit_control"
	StageComplete        Stage = "complete"
	StageOnHold          Stage = "on_hold"
)

var allStages = []Stage{
	StagePOReceipt,
	StageRevisionCheck,
	StageMaterialControl,
	StageInProcess,
	StageExternalProcess,
	StageExitControl,
	StageComplete,
	StageOnHold,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

// AllStages returns the ordered list of known workflow stages.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// MaterialStatus is the status of an incoming-material inspection.
type MaterialStatus string

const (
	MaterialPending  MaterialStatus = "pending"
	MaterialApproved MaterialStatus = "approved"
	MaterialRejected MaterialStatus = "rejected"
)

// ParseMaterialStatus converts a string into a known MaterialStatus.
func ParseMaterialStatus(value string) (MaterialStatus, bool) {
	switch s := MaterialStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case MaterialPending, MaterialApproved, MaterialRejected:
		return s, true
	default:
		return "", false
	}
}

// ExternalStatus is the status of an outsourced-process record.
type ExternalStatus string

const (
	ExternalSent     ExternalStatus = "sent"
	ExternalReceived ExternalStatus = "received"
	ExternalApproved ExternalStatus = "approved"
	ExternalRejected ExternalStatus = "rejected"
)

// ParseExternalStatus converts a string into a known ExternalStatus.
func ParseExternalStatus(value string) (ExternalStatus, bool) {
	switch s := ExternalStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case ExternalSent, ExternalReceived, ExternalApproved, ExternalRejected:
		return s, true
	default:
		return "", false
	}
}

// ReportStatus is the computed overall status of a measurement report.
type ReportStatus string

const (
	ReportPending ReportStatus = "pending"
	ReportPass    ReportStatus = "pass"
	ReportFail    ReportStatus = "fail"
)

// LotStatus is the overall status of an exit control.
type LotStatus string

const (
	LotInProgress LotStatus = "in_progress"
	LotPassed     LotStatus = "passed"
	LotFailed     LotStatus = "failed"
)

// ErrorStatus is the lifecycle status of an error report.
type ErrorStatus string

const (
	ErrorOpen          ErrorStatus = "open"
	ErrorInvestigating ErrorStatus = "investigating"
	ErrorResolved      ErrorStatus = "resolved"
	ErrorClosed        ErrorStatus = "closed"
)

// ParseErrorStatus converts a string into a known ErrorStatus.
func ParseErrorStatus(value string) (ErrorStatus, bool) {
	switch s := ErrorStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case ErrorOpen, ErrorInvestigating, ErrorResolved, ErrorClosed:
		return s, true
	default:
		return "", false
	}
}

// Severity classifies an error report.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// ParseSeverity converts a string into a known Severity.
func ParseSeverity(value string) (Severity, bool) {
	switch s := Severity(strings.ToLower(strings.TrimSpace(value))); s {
	case SeverityCritical, SeverityMajor, SeverityMinor:
		return s, true
	default:
		return "", false
	}
}

// ErrorType attributes an error report to its source.
type ErrorType string

const (
	ErrorInternal         ErrorType = "internal"
	ErrorMaterialSupplier ErrorType = "material_supplier"
	ErrorExternalSupplier ErrorType = "external_supplier"
)

// Role is a user role consulted for notification fan-out.
type Role string

const (
	RoleOperator       Role = "operator"
	RoleInspector      Role = "inspector"
	RoleQualityManager Role = "quality_manager"
	RoleAdmin          Role = "admin"
)

// ParseRole converts a string into a known Role.
func ParseRole(value string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(value))); r {
	case RoleOperator, RoleInspector, RoleQualityManager, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// Part is the canonical identity of a design at a specific revision.
type Part struct {
	ID          int64
	Number      string
	Revision    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Job is the central aggregate: one manufacturing order tracked through QC.
type Job struct {
	ID                  int64
	PONumber            string
	JobNumber           string
	CustomerRef         string
	PartID              int64
	PartNumber          string
	PartRevision        string
	PartDescription     string
	Quantity            int
	DueDate             *time.Time
	Stage               Stage
	DrawingNumber       string
	RevisionVerified    bool
	RevisionVerifiedBy  string
	RevisionVerifiedAt  *time.Time
	SpecialRequirements string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CompletedAt         *time.Time
}

// Dimension is a measurable feature of a job's part.
type Dimension struct {
	ID               int64
	JobID            int64
	Number           int
	Name             string
	Nominal          float64
	TolerancePlus    *float64
	ToleranceMinus   *float64
	Unit             string
	DrawingReference string
	Critical         bool
	CreatedAt        time.Time
}

// MaterialControl is an incoming-material inspection record.
type MaterialControl struct {
	ID                 int64
	JobID              int64
	SupplierID         *int64
	Inspector          string
	MaterialType       string
	BatchNumber        string
	QuantityReceived   string
	CertificateMatches bool
	VisualOK           bool
	DimensionsOK       *bool
	Status             MaterialStatus
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ExternalProcess is an outsourced manufacturing step record.
type ExternalProcess struct {
	ID                 int64
	JobID              int64
	SupplierID         *int64
	ProcessType        string
	QuantitySent       int
	QuantityReceived   int
	SentDate           *time.Time
	ExpectedReturnDate *time.Time
	ActualReturnDate   *time.Time
	Inspector          string
	InspectionNotes    string
	Status             ExternalStatus
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// MeasurementReport groups measurements recorded in one inspection pass.
type MeasurementReport struct {
	ID            int64
	JobID         int64
	ReportType    string
	Inspector     string
	OverallStatus ReportStatus
	Notes         string
	CreatedAt     time.Time
}

// Measurement is a single recorded value against a dimension.
type Measurement struct {
	ID           int64
	ReportID     int64
	DimensionID  int64
	ActualValue  float64
	PassFail     string
	Equipment    string
	SampleNumber int
	MeasuredBy   string
	MeasuredAt   time.Time
	Notes        string
}

// ExitControl is a final pre-shipment inspection of a sampled lot subset.
type ExitControl struct {
	ID            int64
	JobID         int64
	Inspector     string
	LotQuantity   int
	OverallStatus LotStatus
	Notes         string
	CreatedAt     time.Time
}

// ExitControlSample is one physical unit selected for exit inspection,
// identified by its 1-based position within the lot.
type ExitControlSample struct {
	ID            int64
	ExitControlID int64
	Position      int
	DimensionsOK  *bool
	VisualOK      *bool
	SurfaceOK     *bool
	OverallPass   *bool
	Notes         string
	InspectedAt   *time.Time
}

// Recorded reports whether the sample has an inspection verdict.
func (s *ExitControlSample) Recorded() bool {
	return s != nil && s.OverallPass != nil
}

// ErrorReport is a nonconformance record.
type ErrorReport struct {
	ID                int64
	JobID             int64
	ReportedBy        string
	Stage             Stage
	Severity          Severity
	Description       string
	AffectedQuantity  *int
	ErrorType         ErrorType
	SupplierID        *int64
	MaterialControlID *int64
	ExternalProcessID *int64
	Disposition       string
	RootCause         string
	CorrectiveAction  string
	AssignedTo        string
	Status            ErrorStatus
	FoundDate         time.Time
	ResolvedDate      *time.Time
	ClosedDate        *time.Time
	UpdatedAt         time.Time
}

// Supplier is a material supplier or external-process subcontractor.
type Supplier struct {
	ID        int64
	Name      string
	Kind      string
	Active    bool
	CreatedAt time.Time
}

// User is consumed only through role lookups for notification fan-out.
type User struct {
	ID        int64
	Name      string
	Role      Role
	Active    bool
	CreatedAt time.Time
}

// Notification is an in-app notification row.
type Notification struct {
	ID             int64
	UserID         int64
	Kind           string
	Title          string
	Message        string
	LinkEntityType string
	LinkEntityID   int64
	Read           bool
	CreatedAt      time.Time
}

// AuditEntry is an append-only audit trail record.
type AuditEntry struct {
	ID          int64
	Actor       string
	Action      string
	EntityType  string
	EntityID    int64
	Description string
	CreatedAt   time.Time
}

// Attachment associates an uploaded file reference with an entity. The bytes
// live in an external file store; only the reference is kept here.
type Attachment struct {
	ID         int64
	EntityType string
	EntityID   int64
	FileName   string
	Reference  string
	UploadedBy string
	UploadedAt time.Time
}
