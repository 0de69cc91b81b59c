package gate

import "github.com/dmitrijs2005/pingate/internal/client/models"

// Kind names a GateState variant.
type Kind int

const (
	KindLoggedOut Kind = iota
	KindCreatingPasscode
	KindEnteringPasscode
	KindLoggedIn
)

func (k Kind) String() string {
	switch k {
	case KindLoggedOut:
		return "logged_out"
	case KindCreatingPasscode:
		return "creating_passcode"
	case KindEnteringPasscode:
		return "entering_passcode"
	case KindLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// State is the gate's current screen. It is sealed: the only
// implementations are LoggedOut, CreatingPasscode, EnteringPasscode and
// LoggedIn.
type State interface {
	Kind() Kind
	sealed()
}

// LoggedOut requires a fresh remote login.
type LoggedOut struct{}

// CreatingPasscode asks the user to choose a passcode after a remote login.
type CreatingPasscode struct{}

// EnteringPasscode asks for the stored passcode. LastAttemptFailed is set
// after a mismatch so the UI can show an error.
type EnteringPasscode struct {
	LastAttemptFailed bool
}

// LoggedIn carries the session's credentials and the user decoded from them.
type LoggedIn struct {
	Credentials models.Credentials
	User        models.User
}

func (LoggedOut) Kind() Kind        { return KindLoggedOut }
func (CreatingPasscode) Kind() Kind { return KindCreatingPasscode }
func (EnteringPasscode) Kind() Kind { return KindEnteringPasscode }
func (LoggedIn) Kind() Kind         { return KindLoggedIn }

func (LoggedOut) sealed()        {}
func (CreatingPasscode) sealed() {}
func (EnteringPasscode) sealed() {}
func (LoggedIn) sealed()         {}
