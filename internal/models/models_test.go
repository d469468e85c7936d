package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, User{IsAdmin: true}.Role())
	assert.Equal(t, RoleStudent, User{}.Role())
}

func TestStudentProfilePathOf(t *testing.T) {
	resume := "u1_cv.pdf"
	p := &StudentProfile{ResumePath: &resume}
	assert.Equal(t, &resume, p.PathOf(FileKindResume))
	assert.Nil(t, p.PathOf(FileKindPhoto))
	assert.Nil(t, p.PathOf(FileKind("other")))
	assert.False(t, FileKind("other").Valid())
}

func TestJWTClaimsIsAdmin(t *testing.T) {
	var nilClaims *JWTClaims
	assert.False(t, nilClaims.IsAdmin())
	assert.True(t, (&JWTClaims{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&JWTClaims{Role: RoleStudent}).IsAdmin())
}
