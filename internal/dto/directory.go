package dto

// Roster export formats.
const (
	RosterFormatCSV = "csv"
	RosterFormatPDF = "pdf"
)

// DirectoryQuery is the admin search query string.
type DirectoryQuery struct {
	Query  string `form:"q"`
	Course string `form:"course"`
	Format string `form:"format"`
}
