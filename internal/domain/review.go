package domain

import "time"

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)

type Review struct {
	ID         string    `json:"id" bson:"_id"`
	CourseID   string    `json:"course" bson:"course"`
	UserID     string    `json:"user" bson:"user"`
	Rating     int       `json:"rating" bson:"rating"`
	Comment    string    `json:"comment,omitempty" bson:"comment,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at" bson:"reviewed_at"`
}

// Reviewer son los datos públicos del autor de una reseña.
type Reviewer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
	Role     string `json:"role"`
}

// ReviewView es la reseña con su autor resuelto; Reviewer es nil si la cuenta
// ya no existe.
type ReviewView struct {
	Review
	Reviewer *Reviewer `json:"reviewer,omitempty"`
}

// ReviewSummary resume las calificaciones de un curso.
type ReviewSummary struct {
	CourseID string  `json:"course_id" bson:"_id"`
	Average  float64 `json:"average" bson:"average"`
	Count    int     `json:"count" bson:"count"`
}
