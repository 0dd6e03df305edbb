package rbac

// 权限常量
const (
	PermissionReadStreak  = "streak:read"
	PermissionWriteStreak = "streak:write"
	PermissionReadHabit   = "habit:read"
	PermissionWriteHabit  = "habit:write"
)

// 角色常量
const (
	RoleUser   = "user"
	RoleViewer = "viewer"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleUser: {
		PermissionReadStreak,
		PermissionWriteStreak,
		PermissionReadHabit,
		PermissionWriteHabit,
	},
	RoleViewer: {
		PermissionReadStreak,
		PermissionReadHabit,
	},
}

// RoleFor maps the role claim of a token to a known role. Tokens without a
// role act as RoleUser.
func RoleFor(claim string) string {
	if claim == "" {
		return RoleUser
	}
	return claim
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[RoleFor(role)]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查角色是否有指定权限（返回错误而不是布尔值，便于处理）
func CheckPermission(ownerID, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			OwnerID:    ownerID,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	OwnerID    string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}

// ValidateOwner 验证路径中的 uid 是否与 token 中的 subject 匹配
func ValidateOwner(tokenOwnerID, pathOwnerID string) error {
	if tokenOwnerID != pathOwnerID {
		return &OwnerMismatchError{
			TokenOwnerID: tokenOwnerID,
			PathOwnerID:  pathOwnerID,
		}
	}
	return nil
}

// OwnerMismatchError 表示 uid 不匹配的错误
type OwnerMismatchError struct {
	TokenOwnerID string
	PathOwnerID  string
}

func (e *OwnerMismatchError) Error() string {
	return "uid in path does not match token"
}
