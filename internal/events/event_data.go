package events

// EventData is the interface that all event data types must implement
type EventData interface {
	EventType() EventType
}

// AccountRegisteredData contains data for AccountRegistered events
type AccountRegisteredData struct {
	User     string `json:"user"`
	Absorbed bool   `json:"absorbed"` // registration failed and the fallback was used
}

func (d *AccountRegisteredData) EventType() EventType { return AccountRegistered }

// ProfileFetchedData contains data for ProfileFetched events
type ProfileFetchedData struct {
	VerificationLevel int `json:"verification_level"`
}

func (d *ProfileFetchedData) EventType() EventType { return ProfileFetched }

// KYCTriggeredData contains data for KYCTriggered events
type KYCTriggeredData struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

func (d *KYCTriggeredData) EventType() EventType { return KYCTriggered }

// SyncedData contains reconciliation counts for KYCsSynced and TradesSynced events
type SyncedData struct {
	Type    EventType `json:"-"`
	Kept    int       `json:"kept"`
	Added   int       `json:"added"`
	Dropped int       `json:"dropped"`
}

func (d *SyncedData) EventType() EventType { return d.Type }

// QuoteIssuedData contains data for QuoteIssued events
type QuoteIssuedData struct {
	ID        string  `json:"id"`
	Base      string  `json:"base"`
	Quote     string  `json:"quote"`
	Rate      float64 `json:"rate"`
	ExpiresAt string  `json:"expires_at"`
}

func (d *QuoteIssuedData) EventType() EventType { return QuoteIssued }

// TradePlacedData contains data for TradePlaced events
type TradePlacedData struct {
	ID      string `json:"id"`
	QuoteID string `json:"quote_id"`
	Side    string `json:"side"`
	State   string `json:"state"`
}

func (d *TradePlacedData) EventType() EventType { return TradePlaced }

// BankAccountLinkedData contains data for BankAccountLinked events
type BankAccountLinkedData struct {
	ID   string `json:"id"`
	IFSC string `json:"ifsc"`
}

func (d *BankAccountLinkedData) EventType() EventType { return BankAccountLinked }

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (d *ErrorEventData) EventType() EventType { return ErrorOccurred }
