package service

import "edunexus/internal/domain"

// Action identifica la operación que se evalúa en CanAccess.
type Action string

const (
	ActionCreateCourse  Action = "course:create"
	ActionManageCourse  Action = "course:manage"
	ActionManageLecture Action = "lecture:manage"
	ActionViewLectures  Action = "lecture:view_all"
	ActionPurchase      Action = "course:purchase"
	ActionReview        Action = "course:review"
	ActionManageProfile Action = "user:manage"
)

// Principal es la identidad autenticada de la petición.
type Principal struct {
	UserID string
	Role   string
	Email  string
}

// Resource describe el recurso ya cargado sobre el que se actúa. Los campos
// que la acción no usa pueden quedar vacíos.
type Resource struct {
	Course  *domain.Course
	OwnerID string
}

// CanAccess es el único punto de decisión de autorización.
func CanAccess(p Principal, r Resource, action Action) bool {
	if p.UserID == "" {
		return false
	}
	switch action {
	case ActionCreateCourse:
		return p.Role == domain.RoleEducator
	case ActionManageCourse, ActionManageLecture:
		return r.Course != nil && r.Course.Creator == p.UserID
	case ActionViewLectures:
		if r.Course == nil {
			return false
		}
		return r.Course.Creator == p.UserID || r.Course.HasStudent(p.UserID)
	case ActionPurchase:
		return r.OwnerID != "" && r.OwnerID == p.UserID
	case ActionReview:
		return r.Course != nil && r.Course.Creator != p.UserID
	case ActionManageProfile:
		return r.OwnerID == p.UserID
	}
	return false
}
