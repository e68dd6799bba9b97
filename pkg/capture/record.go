package capture

import "time"

// Record is one intercepted request as it appeared on the wire.
// Fields are never mutated after the record enters the store.
type Record struct {
	// ID is assigned by the store on insert. Strictly increasing, never reused.
	ID int64 `json:"id"`

	// Time is when the request was observed.
	Time time.Time `json:"time"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// URL is the fully qualified URL as observed.
	URL string `json:"url"`

	// Host is the destination host.
	Host string `json:"host"`

	// Port is the destination port (1-65535).
	Port int `json:"port"`

	// Secure reports whether the request was sent over TLS.
	Secure bool `json:"https"`

	// Raw holds the exact request bytes, headers and body included,
	// with no re-encoding or line-ending normalization.
	Raw []byte `json:"-"`
}

// Summary is the lightweight projection of a Record returned by List.
type Summary struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	URL    string `json:"url"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"https"`
}

// Summary returns the list projection of the record.
func (r *Record) Summary() Summary {
	return Summary{
		ID:     r.ID,
		Method: r.Method,
		URL:    r.URL,
		Host:   r.Host,
		Port:   r.Port,
		Secure: r.Secure,
	}
}
