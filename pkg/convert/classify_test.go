package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyType(t *testing.T) {
	// Classification is a pure function of the uppercased name.
	assert.Equal(t, classYear, classifyType("YEAR"))
	assert.Equal(t, classYear, classifyType("year"))
	assert.Equal(t, classYear, classifyType("Year"))
	assert.Equal(t, classYear, classifyType("YEAR(4)"))
	assert.Equal(t, classYear, classifyType("year(4)"))

	assert.Equal(t, classEnum, classifyType("ENUM"))
	assert.Equal(t, classEnum, classifyType("enum('a','b')"))
	assert.Equal(t, classEnum, classifyType("ENUM('a','b','c')"))

	assert.Equal(t, classSet, classifyType("SET"))
	assert.Equal(t, classSet, classifyType("set('x','y')"))

	// The prefix match requires an opening parenthesis, not an
	// arbitrary suffix.
	assert.Equal(t, classOther, classifyType("YEARLY"))
	assert.Equal(t, classOther, classifyType("SETNUM"))
	assert.Equal(t, classOther, classifyType("ENUMERATION"))

	assert.Equal(t, classOther, classifyType("INT"))
	assert.Equal(t, classOther, classifyType("varchar(255)"))
	assert.Equal(t, classOther, classifyType("datetime"))

	// An absent type name is never an error.
	assert.Equal(t, classOther, classifyType(""))
}

func TestMatches(t *testing.T) {
	assert.True(t, matches("YEAR", "YEAR"))
	assert.True(t, matches("YEAR(4)", "YEAR"))
	assert.False(t, matches("YEARLY", "YEAR"))
	assert.False(t, matches("", "YEAR"))
	assert.False(t, matches("YEA", "YEAR"))
}
