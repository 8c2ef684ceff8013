package repository

import (
	"github.com/ValentinKolb/pRepo/lib/path"
)

// UpdateType identifies the kind of an UpdateMessage.
type UpdateType int

const (
	// Startup is published once by New.
	Startup UpdateType = iota
	// DataRead is published after every successful load.
	DataRead
	// Update is published after every single path write or removal.
	Update
	// Reset is published after the defaults were restored, before they are written back.
	Reset
	// DataWritten is published after every successful write back.
	DataWritten
)

func (t UpdateType) String() string {
	switch t {
	case Startup:
		return "Startup"
	case DataRead:
		return "DataRead"
	case Update:
		return "Update"
	case Reset:
		return "Reset"
	case DataWritten:
		return "DataWritten"
	default:
		return "Unknown"
	}
}

// UpdateMessage is published on the repository's update bus.
//
// Data is a deep copy of the repository for DataRead, Reset and DataWritten and
// nil for Startup and Update. Update messages describe the change instead: Path
// is the absolute path, Value a deep copy of the new value and Removed is set
// if the path was cleared. Subscribers may keep and modify the values.
type UpdateMessage struct {
	Type    UpdateType
	Handle  Handle
	Data    path.Values
	Path    string
	Value   any
	Removed bool
}
