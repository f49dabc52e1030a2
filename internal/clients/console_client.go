// internal/clients/console_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"shelftrack/internal/borrowers"
	"shelftrack/internal/catalog"
	"shelftrack/internal/circulation"
)

// ConsoleClient is a typed client for the console HTTP API, for headless
// tooling and end-to-end tests.
type ConsoleClient struct {
	baseURL string
	http    *http.Client
}

func NewConsoleClient(baseURL string) *ConsoleClient {
	return &ConsoleClient{baseURL: baseURL, http: http.DefaultClient}
}

// AddBook creates title metadata and returns its id.
func (c *ConsoleClient) AddBook(ctx context.Context, meta catalog.Metadata) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/books", meta, &out)
	return out.ID, err
}

// AddUnit enrolls a physical copy of a title.
func (c *ConsoleClient) AddUnit(ctx context.Context, bookUID, metadataID, tagUID, securityPass string) error {
	body := map[string]string{
		"book_uid":      bookUID,
		"metadata_id":   metadataID,
		"tag_uid":       tagUID,
		"security_pass": securityPass,
	}
	return c.do(ctx, http.MethodPost, "/api/v1/units", body, nil)
}

// GetUnit fetches one physical copy.
func (c *ConsoleClient) GetUnit(ctx context.Context, bookUID string) (*catalog.Unit, error) {
	var unit catalog.Unit
	if err := c.do(ctx, http.MethodGet, "/api/v1/units/"+bookUID, nil, &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// RegisterBorrower enrolls a patron card.
func (c *ConsoleClient) RegisterBorrower(ctx context.Context, b borrowers.Borrower) error {
	body := map[string]string{
		"tag_uid": b.TagUID,
		"fname":   b.FirstName,
		"mname":   b.MiddleName,
		"lname":   b.LastName,
		"email":   b.Email,
		"level":   b.Level,
		"course":  b.Course,
		"year":    b.Year,
	}
	return c.do(ctx, http.MethodPost, "/api/v1/borrowers", body, nil)
}

// Checkout opens a loan for a unit.
func (c *ConsoleClient) Checkout(ctx context.Context, bookUID, borrowerTag, location string) (*circulation.Loan, error) {
	body := map[string]string{
		"book_uid":     bookUID,
		"borrower_tag": borrowerTag,
		"location":     location,
	}
	var loan circulation.Loan
	if err := c.do(ctx, http.MethodPost, "/api/v1/loans/checkout", body, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

// Return closes a unit's open loan.
func (c *ConsoleClient) Return(ctx context.Context, bookUID string) (*circulation.Loan, error) {
	var loan circulation.Loan
	if err := c.do(ctx, http.MethodPost, "/api/v1/loans/"+bookUID+"/return", nil, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

// ActiveLoans lists every open loan.
func (c *ConsoleClient) ActiveLoans(ctx context.Context) ([]circulation.Loan, error) {
	var loans []circulation.Loan
	if err := c.do(ctx, http.MethodGet, "/api/v1/loans/active", nil, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

func (c *ConsoleClient) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status code: %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
