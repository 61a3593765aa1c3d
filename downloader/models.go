package downloader

import "cryogon/rizumu-udio/models"

type DownloadPayload struct {
	TrackID string `json:"track_id"`
}

type TaskStatus string

const (
	StatusPending     TaskStatus = "Pending"
	StatusDownloading TaskStatus = "Downloading"
	StatusComplete    TaskStatus = "Complete"
	StatusFailed      TaskStatus = "Failed"
)

type Task struct {
	ID       int64        `json:"id"`
	Track    models.Track `json:"track"`
	Progress float64      `json:"progress"` // download progress
	Status   TaskStatus   `json:"status"`
	FilePath string       `json:"file_path,omitempty"`
	Error    string       `json:"error,omitempty"`
}
