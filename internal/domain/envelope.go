package domain

// SignatureEnvelope is the minimal record carried across the event bus from
// the ingester to the workers. It is transient: produced once per detected
// transaction, consumed once by a worker.
type SignatureEnvelope struct {
	Signature string `json:"signature"`
	Err       any    `json:"err,omitempty"`
}
