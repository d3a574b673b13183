package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanBorrow(t *testing.T) {
	maxBooks := 5

	u := &User{Status: StatusActive, EmailVerified: true}
	ok, _ := u.CanBorrow(maxBooks)
	assert.True(t, ok)

	u = &User{Status: StatusSuspended, EmailVerified: true}
	ok, reason := u.CanBorrow(maxBooks)
	assert.False(t, ok)
	assert.Contains(t, reason, "SUSPENDED")

	u = &User{Status: StatusBanned, EmailVerified: true}
	ok, reason = u.CanBorrow(maxBooks)
	assert.False(t, ok)
	assert.Contains(t, reason, "BANNED")

	u = &User{Status: StatusActive, EmailVerified: false}
	ok, reason = u.CanBorrow(maxBooks)
	assert.False(t, ok)
	assert.Contains(t, reason, "verified")

	u = &User{Status: StatusActive, EmailVerified: true, ActiveBorrowings: maxBooks}
	ok, reason = u.CanBorrow(maxBooks)
	assert.False(t, ok)
	assert.Contains(t, reason, "limit")
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&User{FirstName: "Ada", LastName: "Lovelace"}).FullName())
	assert.Equal(t, "Ada", (&User{FirstName: "Ada"}).FullName())
	assert.Equal(t, "Lovelace", (&User{LastName: "Lovelace"}).FullName())
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, salt, err := hashPassword("correct horse battery staple")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEmpty(t, salt)

	ok, err := verifyPassword("correct horse battery staple", salt, hash)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword("wrong password", salt, hash)
	assert.NoError(t, err)
	assert.False(t, ok)
}
