package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission("", PermissionWriteStreak))
	assert.True(t, HasPermission(RoleUser, PermissionWriteHabit))
	assert.True(t, HasPermission(RoleViewer, PermissionReadStreak))
	assert.False(t, HasPermission(RoleViewer, PermissionWriteStreak))
	assert.False(t, HasPermission("root", PermissionReadStreak))
}

func TestCheckPermission(t *testing.T) {
	err := CheckPermission("u1", RoleViewer, PermissionWriteHabit)
	var denied *PermissionDeniedError
	assert.ErrorAs(t, err, &denied)
	assert.Equal(t, PermissionWriteHabit, denied.Permission)

	assert.NoError(t, CheckPermission("u1", RoleUser, PermissionWriteHabit))
}

func TestValidateOwner(t *testing.T) {
	assert.NoError(t, ValidateOwner("a", "a"))
	var mismatch *OwnerMismatchError
	assert.ErrorAs(t, ValidateOwner("a", "b"), &mismatch)
}
