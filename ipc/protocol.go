package ipc

import (
	"encoding/json"

	"cryogon/rizumu-udio/models"
)

type CommandType string

// What client can send
const (
	CmdSearch      CommandType = "search"
	CmdPlay        CommandType = "play"
	CmdPause       CommandType = "pause"
	CmdResume      CommandType = "resume"
	CmdStop        CommandType = "stop"
	CmdVolume      CommandType = "volume"
	CmdSeek        CommandType = "seek"
	CmdLoopSection CommandType = "loop_section"
	CmdCancelLoop  CommandType = "cancel_loop"
	CmdRandom      CommandType = "random"
	CmdDownload    CommandType = "download"
	CmdState       CommandType = "state"
)

// Message types sent back to clients.
const (
	MsgTracks      = "tracks"
	MsgTrack       = "track"
	MsgTask        = "task"
	MsgOK          = "ok"
	MsgError       = "error"
	MsgPlayerState = "player_state"
)

// Command is one JSON line from a client. Which fields matter depends on Type.
type Command struct {
	Type CommandType `json:"type"`

	// search
	Term string   `json:"term,omitempty"`
	Tags []string `json:"tags,omitempty"`
	Sort string   `json:"sort,omitempty"`

	// play / download: Track wins over TrackID, which wins over Input
	Input   string        `json:"input,omitempty"`
	TrackID string        `json:"track_id,omitempty"`
	Track   *models.Track `json:"track,omitempty"`

	// random
	Genre string `json:"genre,omitempty"`

	Volume      float64 `json:"volume,omitempty"`
	Seconds     float64 `json:"seconds,omitempty"`
	Start       float64 `json:"start,omitempty"`
	End         float64 `json:"end,omitempty"`
	Repetitions int     `json:"repetitions,omitempty"`
}

type PlayerState struct {
	Playing     bool    `json:"playing"`
	TrackID     string  `json:"track_id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Progress    float64 `json:"progress"` // seconds into the track
	Duration    float64 `json:"duration"` // seconds
	Volume      float64 `json:"volume"`
	Looping     bool    `json:"looping"`
	SectionFrom float64 `json:"section_from,omitempty"`
	SectionTo   float64 `json:"section_to,omitempty"`
}

type ErrorReply struct {
	Command CommandType `json:"command"`
	Error   string      `json:"error"`
}

type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func NewMessage(payload any, msgType string) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg := Message{Type: msgType, Data: data}
	return json.Marshal(msg)
}
