package models

import "fmt"

// Column binds an output header to the listing field it is read from
type Column struct {
	Header string
	Value  func(l JobListing) string
}

// Schema is an ordered set of output columns
type Schema struct {
	Name    string
	Columns []Column
}

// Schema names accepted in configuration
const (
	SchemaFull    = "full"
	SchemaCompact = "compact"
)

// FullSchema is the pipe-delimited daily export layout
var FullSchema = Schema{
	Name: SchemaFull,
	Columns: []Column{
		{"id", func(l JobListing) string { return l.ID }},
		{"Titulo", func(l JobListing) string { return l.Title }},
		{"Salario", func(l JobListing) string { return l.Salary }},
		{"Ciudad", func(l JobListing) string { return l.City }},
		{"Fecha", func(l JobListing) string { return l.PostedDate }},
		{"Detalle", func(l JobListing) string { return l.Detail }},
		{"Cargo", func(l JobListing) string { return l.Position }},
		{"Tipo de puesto", func(l JobListing) string { return l.PositionType }},
		{"Nivel de educación", func(l JobListing) string { return l.EducationLevel }},
		{"Sector", func(l JobListing) string { return l.Sector }},
		{"Experiencia", func(l JobListing) string { return l.Experience }},
		{"Tipo de contrato", func(l JobListing) string { return l.ContractType }},
		{"Vacantes", func(l JobListing) string { return l.Vacancies }},
		{"Areas", func(l JobListing) string { return l.Areas }},
		{"Profesiones", func(l JobListing) string { return l.Professions }},
		{"Nombre empresa", func(l JobListing) string { return l.CompanyName }},
		{"Descripcion empresa", func(l JobListing) string { return l.CompanyDescription }},
		{"Habilidades", func(l JobListing) string { return l.Skills }},
		{"Cargos", func(l JobListing) string { return l.Positions }},
	},
}

// CompactSchema is the layout used by the paginated timestamped export
var CompactSchema = Schema{
	Name: SchemaCompact,
	Columns: []Column{
		{"id", func(l JobListing) string { return l.ID }},
		{"title", func(l JobListing) string { return l.Title }},
		{"salary", func(l JobListing) string { return l.Salary }},
		{"city", func(l JobListing) string { return l.City }},
		{"posted_date", func(l JobListing) string { return l.PostedDate }},
		{"company", func(l JobListing) string { return l.CompanyName }},
		{"detail_url", func(l JobListing) string { return l.Detail }},
	},
}

// SchemaByName resolves a configured schema name
func SchemaByName(name string) (Schema, error) {
	switch name {
	case SchemaFull:
		return FullSchema, nil
	case SchemaCompact, "":
		return CompactSchema, nil
	default:
		return Schema{}, fmt.Errorf("unknown output schema: %s", name)
	}
}

// Headers returns the header row
func (s Schema) Headers() []string {
	headers := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		headers[i] = c.Header
	}
	return headers
}

// Row renders a listing as one row; the result always has len(s.Columns) cells
func (s Schema) Row(l JobListing) []string {
	row := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		row[i] = c.Value(l)
	}
	return row
}

// Rows renders every listing with Row
func (s Schema) Rows(listings []JobListing) [][]string {
	rows := make([][]string, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, s.Row(l))
	}
	return rows
}
