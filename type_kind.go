package capgains

import "fmt"

// Kind is the nature of a ledger activity.
type Kind int

const (
	Purchase Kind = iota + 1
	Sale
	Fee
	Dividend
	Interest
)

// String returns the name persisted in the ledger for that kind.
func (k Kind) String() string {
	switch k {
	case Purchase:
		return "Purchase"
	case Sale:
		return "Sale"
	case Fee:
		return "Fee"
	case Dividend:
		return "Dividend"
	case Interest:
		return "Interest"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool { return k >= Purchase && k <= Interest }

// ParseKind parses a persisted kind name. Any unknown name is an integrity error.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "Purchase":
		return Purchase, nil
	case "Sale":
		return Sale, nil
	case "Fee":
		return Fee, nil
	case "Dividend":
		return Dividend, nil
	case "Interest":
		return Interest, nil
	default:
		return 0, &IntegrityError{Reason: fmt.Sprintf("unknown activity kind %q", s)}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, &IntegrityError{Reason: fmt.Sprintf("unknown activity kind %d", int(k))}
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}
