package sqlstore

import (
	"time"

	"gorm.io/datatypes"
)

// Session is one recording run.
type Session struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name" gorm:"size:128"`
	EndedAt   *time.Time
}

func (*Session) TableName() string {
	return "sessions"
}

// FrameRecord is one published telemetry frame.
type FrameRecord struct {
	ID             uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID      uint           `json:"sessionId" gorm:"index:idx_frame_session_frame"`
	Frame          uint64         `json:"frame" gorm:"index:idx_frame_session_frame"`
	RecordedAt     time.Time      `json:"recordedAt"`
	AnimationValue float32        `json:"animationValue"`
	Data           datatypes.JSON `json:"data"`
}

func (*FrameRecord) TableName() string {
	return "frame_records"
}

// TrajectoryRecord is an instrument path stored as WKT, written when the
// session closes.
type TrajectoryRecord struct {
	ID        uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	SessionID uint    `json:"sessionId" gorm:"index"`
	Name      string  `json:"name" gorm:"size:32"`
	Points    int     `json:"points"`
	Length    float64 `json:"length"`
	WKT       string  `json:"wkt" gorm:"type:text"`
}

func (*TrajectoryRecord) TableName() string {
	return "trajectory_records"
}

// Models lists every table the store migrates.
var Models = []any{
	&Session{},
	&FrameRecord{},
	&TrajectoryRecord{},
}
