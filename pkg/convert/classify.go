package convert

import "strings"

// typeClass is the closed classification of declared types that have
// MySQL-specific conversion rules. Everything else is classOther.
type typeClass int

const (
	classOther typeClass = iota
	classYear
	classEnum
	classSet
)

// classifyType classifies a declared type name. It is the single source of
// truth for dispatch: schema resolution and converter building both call it,
// so the two can never disagree about a type. An empty or absent type name
// classifies as classOther.
func classifyType(typeName string) typeClass {
	upper := strings.ToUpper(typeName)
	switch {
	case matches(upper, "YEAR"):
		return classYear
	case matches(upper, "ENUM"):
		return classEnum
	case matches(upper, "SET"):
		return classSet
	}
	return classOther
}

// matches reports whether the uppercase form of a declared type equals the
// expected keyword, or begins with the keyword followed by an opening
// parenthesis. The latter tolerates parameterized declarations such as
// ENUM('a','b') and YEAR(4), without matching unrelated types that merely
// share a prefix (SETNUM, YEARLY).
func matches(upperCaseTypeName, upperCaseMatch string) bool {
	if upperCaseTypeName == "" {
		return false
	}
	return upperCaseTypeName == upperCaseMatch ||
		strings.HasPrefix(upperCaseTypeName, upperCaseMatch+"(")
}
