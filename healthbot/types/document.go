package types

type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ChunksCount int       `json:"chunks_count"`
	UploadedAt  Timestamp `json:"uploaded_at,omitempty"`
}

type UploadResult struct {
	Message     string `json:"message,omitempty"`
	Filename    string `json:"filename"`
	ChunksCount int    `json:"chunks_count"`
}
