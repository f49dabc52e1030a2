// internal/readers/domain.go
package readers

// Derived reader statuses. Status is never authoritative input; the monitor
// rewrites it each cycle from last_update staleness.
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"
)

// Scan methods. Single-tag readers carry a tag_uid field, multi-tag readers a
// tag_uids map; the hardware bridge fills whichever exists.
const (
	ScanSingle = "Single"
	ScanMulti  = "Multi"
)

// Reader is an RFID reader station at readers/{reader_no}. location, tag_uid,
// card_type, function and security_check form the field contract with the
// hardware bridge: the bridge writes tag scans and last_update, the console
// writes commands into card_type/function and clears security_check.
type Reader struct {
	Location      string            `json:"location"`
	Status        string            `json:"status"`
	LastUpdate    string            `json:"last_update,omitempty"`
	TagUID        string            `json:"tag_uid,omitempty"`
	TagUIDs       map[string]string `json:"tag_uids,omitempty"`
	CardType      string            `json:"card_type,omitempty"`
	Function      string            `json:"function,omitempty"`
	SecurityCheck string            `json:"security_check,omitempty"`
}

// ScanMethod reports how the reader was provisioned.
func (r Reader) ScanMethod() string {
	if r.TagUIDs != nil {
		return ScanMulti
	}
	return ScanSingle
}
