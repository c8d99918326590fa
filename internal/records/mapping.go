package records

import (
	"database/sql"
	"net/url"

	"github.com/JaimeStill/pestwatch/pkg/database"
	"github.com/JaimeStill/pestwatch/pkg/query"
	"github.com/JaimeStill/pestwatch/pkg/repository"
)

func newProjection(driver string) *query.ProjectionMap {
	schema, dialect := "public", query.Postgres
	if driver == database.DriverSQLite {
		schema, dialect = "main", query.SQLite
	}

	return query.
		NewProjectionMap(schema, "records", "r").
		WithDialect(dialect).
		Project("id", "ID").
		Project("original_filename", "OriginalFilename").
		Project("stored_filename", "StoredFilename").
		Project("artifact_location", "ArtifactLocation").
		Project("predicted_label", "PredictedLabel").
		Project("confidence", "Confidence").
		Project("probabilities", "Probabilities").
		Project("submitter_id", "SubmitterID").
		Project("full_name", "FullName").
		Project("barangay", "Barangay").
		Project("crop", "Crop").
		Project("area", "Area").
		Project("contact", "Contact").
		Project("latitude", "Latitude").
		Project("longitude", "Longitude").
		Project("city", "City").
		Project("country", "Country").
		Project("status", "Status").
		Project("approved_label", "ApprovedLabel").
		Project("reviewed_at", "ReviewedAt").
		Project("created_at", "CreatedAt")
}

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for record queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	Status         *Status `json:"status,omitempty"`
	SubmitterID    *string `json:"submitter_id,omitempty"`
	PredictedLabel *string `json:"predicted_label,omitempty"`
	ApprovedLabel  *string `json:"approved_label,omitempty"`
	City           *string `json:"city,omitempty"`
	Country        *string `json:"country,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var status *string
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}

	return b.
		WhereEquals("Status", status).
		WhereEquals("SubmitterID", f.SubmitterID).
		WhereEquals("PredictedLabel", f.PredictedLabel).
		WhereEquals("ApprovedLabel", f.ApprovedLabel).
		WhereEquals("City", f.City).
		WhereEquals("Country", f.Country)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		st := Status(s)
		f.Status = &st
	}

	if s := values.Get("submitter_id"); s != "" {
		f.SubmitterID = &s
	}

	if l := values.Get("predicted_label"); l != "" {
		f.PredictedLabel = &l
	}

	if l := values.Get("approved_label"); l != "" {
		f.ApprovedLabel = &l
	}

	if c := values.Get("city"); c != "" {
		f.City = &c
	}

	if c := values.Get("country"); c != "" {
		f.Country = &c
	}

	return f
}

func scanRecord(s repository.Scanner) (Record, error) {
	var r Record
	var fullName, barangay, crop, area, contact sql.NullString

	err := s.Scan(
		&r.ID,
		&r.OriginalFilename,
		&r.StoredFilename,
		&r.ArtifactLocation,
		&r.PredictedLabel,
		&r.Confidence,
		&r.Probabilities,
		&r.Submitter.ID,
		&fullName,
		&barangay,
		&crop,
		&area,
		&contact,
		&r.Location.Latitude,
		&r.Location.Longitude,
		&r.Location.City,
		&r.Location.Country,
		&r.Status,
		&r.ApprovedLabel,
		&r.ReviewedAt,
		&r.CreatedAt,
	)
	if err != nil {
		return r, err
	}

	r.Submitter.FullName = fullName.String
	r.Submitter.Barangay = barangay.String
	r.Submitter.Crop = crop.String
	r.Submitter.Area = area.String
	r.Submitter.Contact = contact.String

	return r, nil
}

func scanStats(s repository.Scanner) (Stats, error) {
	var st Stats
	err := s.Scan(
		&st.Total,
		&st.Pending,
		&st.Approved,
		&st.Rejected,
		&st.DistinctSubmitters,
	)
	return st, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
