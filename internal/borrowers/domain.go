// internal/borrowers/domain.go
package borrowers

// Borrower is a registered patron, keyed in the tree by the RFID card they
// present at the desk: borrower/{tag_uid}.
type Borrower struct {
	TagUID     string `json:"-"`
	FirstName  string `json:"fname"`
	MiddleName string `json:"mname,omitempty"`
	LastName   string `json:"lname"`
	ShortName  string `json:"abbrname,omitempty"`
	Email      string `json:"email"`
	Level      string `json:"level,omitempty"`
	Course     string `json:"course,omitempty"`
	Year       string `json:"year,omitempty"`
}
