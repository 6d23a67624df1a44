package twenty

import "time"

// Person is a CRM contact, flattened from Twenty's nested wire shape.
type Person struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	JobTitle  string
	City      string
	CompanyID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins the name parts, tolerating either being empty.
func (p Person) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// PersonInput carries the writable contact fields. Empty fields are omitted
// from the mutation payload.
type PersonInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	JobTitle  string
	City      string
	CompanyID string
}

// Company is a CRM account record.
type Company struct {
	ID              string
	Name            string
	DomainName      string
	Address         string
	Employees       int
	AnnualRecurring float64
	IdealCustomer   bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CompanyInput carries the writable company fields.
type CompanyInput struct {
	Name            string
	DomainName      string
	Address         string
	Employees       *int
	AnnualRecurring *float64
	IdealCustomer   *bool
}

// Opportunity stages mirror the upstream pipeline enumeration.
const (
	StageNew       = "NEW"
	StageScreening = "SCREENING"
	StageMeeting   = "MEETING"
	StageProposal  = "PROPOSAL"
	StageCustomer  = "CUSTOMER"
)

// Stages lists the pipeline stages in funnel order.
var Stages = []string{StageNew, StageScreening, StageMeeting, StageProposal, StageCustomer}

// Opportunity is a deal in the pipeline.
type Opportunity struct {
	ID           string
	Name         string
	Stage        string
	AmountMicros int64
	Currency     string
	CloseDate    *time.Time
	CompanyID    string
	ContactID    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Amount converts the upstream micros representation to currency units.
func (o Opportunity) Amount() float64 { return float64(o.AmountMicros) / 1e6 }

// OpportunityInput carries the writable opportunity fields.
type OpportunityInput struct {
	Name      string
	Stage     string
	Amount    *float64
	Currency  string
	CloseDate *time.Time
	CompanyID string
	ContactID string
}

// Task statuses mirror the upstream enumeration.
const (
	TaskTodo       = "TODO"
	TaskInProgress = "IN_PROGRESS"
	TaskDone       = "DONE"
)

// Task is an actionable to-do, optionally bound to a contact or company.
type Task struct {
	ID         string
	Title      string
	Body       string
	Status     string
	DueAt      *time.Time
	AssigneeID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TaskInput carries the writable task fields.
type TaskInput struct {
	Title      string
	Body       string
	Status     string
	DueAt      *time.Time
	AssigneeID string
}

// Note is free-form annotation attached to CRM records.
type Note struct {
	ID        string
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteInput carries the writable note fields.
type NoteInput struct {
	Title string
	Body  string
}

// Activity is one timeline event: a task or note, normalized for display.
type Activity struct {
	Kind      string // "task" or "note"
	ID        string
	Title     string
	Detail    string
	Timestamp time.Time
}
