// Package domain is the shared entity vocabulary of the opx control plane:
// every other package imports these types rather than redeclaring them, the
// way kubernaut centralizes its CRD/API types in one package.
package domain

// AuthorityType is the actor class making a request, ordered so authority
// checks reduce to an integer comparison.
type AuthorityType int

const (
	AuthorityAutoEngine      AuthorityType = 0
	AuthorityHumanOperator   AuthorityType = 1
	AuthorityOnCallSRE       AuthorityType = 2
	AuthorityEmergencyOverride AuthorityType = 999
)

// String renders the authority type the way it appears in audits and API
// payloads.
func (a AuthorityType) String() string {
	switch a {
	case AuthorityAutoEngine:
		return "AUTO_ENGINE"
	case AuthorityHumanOperator:
		return "HUMAN_OPERATOR"
	case AuthorityOnCallSRE:
		return "ON_CALL_SRE"
	case AuthorityEmergencyOverride:
		return "EMERGENCY_OVERRIDE"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders the authority type as its string name.
func (a AuthorityType) MarshalJSON() ([]byte, error) {
	return marshalQuoted(a.String())
}

// UnmarshalJSON parses the authority type from its string name.
func (a *AuthorityType) UnmarshalJSON(b []byte) error {
	s, err := unmarshalQuoted(b)
	if err != nil {
		return err
	}
	switch s {
	case "AUTO_ENGINE":
		*a = AuthorityAutoEngine
	case "HUMAN_OPERATOR":
		*a = AuthorityHumanOperator
	case "ON_CALL_SRE":
		*a = AuthorityOnCallSRE
	case "EMERGENCY_OVERRIDE":
		*a = AuthorityEmergencyOverride
	default:
		return errInvalidEnum("AuthorityType", s)
	}
	return nil
}

// Authority identifies who or what is acting, and at what level. The level
// ordering is the sole input to every authority-sufficiency check in
// pkg/incident and pkg/automation.
type Authority struct {
	Type      AuthorityType `json:"type"`
	Principal string        `json:"principal"`
}

// Satisfies reports whether a carries at least the given required level.
func (a Authority) Satisfies(required AuthorityType) bool {
	return a.Type >= required
}

// SystemAuthority is the literal SYSTEM principal scheduled invocations must
// carry (spec.md §9's "implicit authority default in schedulers" redesign
// flag: no implicit default, a named constant instead).
var SystemAuthority = Authority{Type: AuthorityAutoEngine, Principal: "SYSTEM"}
