package model

// Task is a coursework listing ("tugas") grouped by category.
type Task struct {
	Category    string `json:"category"`
	Deadline    string `json:"deadline"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
