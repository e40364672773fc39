package domain

import "time"

const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

const MaxCoursePrice = 100000

type Course struct {
	ID                 string     `json:"id" bson:"_id"`
	Title              string     `json:"title" bson:"title"`
	Subtitle           string     `json:"subtitle,omitempty" bson:"subtitle,omitempty"`
	Description        string     `json:"description,omitempty" bson:"description,omitempty"`
	Category           string     `json:"category" bson:"category"`
	Level              string     `json:"level" bson:"level"`
	Price              float64    `json:"price" bson:"price"`
	Thumbnail          string     `json:"thumbnail,omitempty" bson:"thumbnail,omitempty"`
	Creator            string     `json:"creator" bson:"creator"`
	IsPublished        bool       `json:"is_published" bson:"is_published"`
	EnrollmentStudents []string   `json:"enrollment_students" bson:"enrollment_students"`
	Lectures           []string   `json:"lectures" bson:"lectures"`
	Reviews            []string   `json:"reviews" bson:"reviews"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" bson:"updated_at"`
}

// HasStudent indica si el usuario figura en la lista de inscritos.
func (c Course) HasStudent(userID string) bool {
	for _, id := range c.EnrollmentStudents {
		if id == userID {
			return true
		}
	}
	return false
}

// CourseUpdate agrupa los campos editables; nil significa "sin cambios".
type CourseUpdate struct {
	Title       *string
	Subtitle    *string
	Description *string
	Category    *string
	Level       *string
	Price       *float64
	IsPublished *bool
	Thumbnail   *string
}

func ValidLevel(level string) bool {
	switch level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}
