package domain

import "time"

// Lecture pertenece a un único curso; la referencia inversa vive en Course.Lectures.
type Lecture struct {
	ID            string    `json:"id" bson:"_id"`
	Title         string    `json:"lecture_title" bson:"title"`
	VideoURL      string    `json:"video_url,omitempty" bson:"video_url,omitempty"`
	IsPreviewFree bool      `json:"is_preview_free" bson:"is_preview_free"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

type LectureUpdate struct {
	Title         *string
	VideoURL      *string
	IsPreviewFree *bool
}
