package auth

// ValidationKind discriminates registration rejections that guide
// user-facing remediation. Unlike login failures these are distinguished:
// they do not constitute a credential-guessing oracle.
type ValidationKind string

const (
	ValidationAlreadyExists     ValidationKind = "already_exists"
	ValidationWeakPassword      ValidationKind = "weak_password"
	ValidationInvalidParameters ValidationKind = "invalid_parameters"
	ValidationUnknown           ValidationKind = "unknown"
)

// ValidationError reports a rejected registration. The message is safe to
// show to end users; underlying provider detail is logged, never carried
// here.
type ValidationError struct {
	Kind ValidationKind
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ValidationAlreadyExists:
		return "auth: user already exists"
	case ValidationWeakPassword:
		return "auth: password does not meet requirements"
	case ValidationInvalidParameters:
		return "auth: invalid registration data"
	default:
		return "auth: could not create user"
	}
}
