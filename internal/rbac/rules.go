package rbac

const (
	PermQuestionView        = "question:view"
	PermQuestionManage      = "question:manage"
	PermAssessmentSubmit    = "assessment:submit"
	PermAssessmentViewOwn   = "assessment:view-own"
	PermAssessmentDeleteOwn = "assessment:delete-own"
	PermAccountPassword     = "account:change_password"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	"user": {
		PermQuestionView,
		"assessment:*",
		PermAccountPassword,
	},
	"admin": {
		"*", // everything
	},
}
