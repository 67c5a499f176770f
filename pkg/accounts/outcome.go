package accounts

// LoginOutcome is the result of Store.LoginWithLockout.
type LoginOutcome int

const (
	// LoginFailed covers unknown email, wrong password, deleted account and
	// storage failures. Callers must not tell these apart in responses.
	LoginFailed LoginOutcome = iota
	// LoginSucceeded means the session now holds the account.
	LoginSucceeded
	// LoginLocked means the account was already locked; nothing changed.
	LoginLocked
	// LoginNowLocked means this failed attempt reached the threshold.
	LoginNowLocked
)

// Succeeded reports whether the caller is logged in.
func (o LoginOutcome) Succeeded() bool {
	return o == LoginSucceeded
}

// Locked reports whether the account is locked after the attempt.
func (o LoginOutcome) Locked() bool {
	return o == LoginLocked || o == LoginNowLocked
}

func (o LoginOutcome) String() string {
	switch o {
	case LoginSucceeded:
		return "succeeded"
	case LoginLocked:
		return "locked"
	case LoginNowLocked:
		return "now_locked"
	default:
		return "failed"
	}
}
