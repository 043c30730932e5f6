package models

// RecorderRow is the durable configuration for one Recorder, as exposed to
// the host via the persistence collaborator.
type RecorderRow struct {
	BaseModel

	Platform  Platform `gorm:"not null;size:20;uniqueIndex:idx_recorder_room" json:"platform"`
	RoomID    string   `gorm:"not null;size:255;uniqueIndex:idx_recorder_room" json:"room_id"`
	AccountID ULID     `gorm:"type:varchar(26);index" json:"account_id"`
	Enabled   *bool    `gorm:"default:true" json:"enabled"`

	// Title/CoverURL mirror the last observed RoomInfo snapshot for UI use.
	Title    string `gorm:"size:512" json:"title,omitempty"`
	CoverURL string `gorm:"size:2048" json:"cover_url,omitempty"`
}

// TableName returns the table name for RecorderRow.
func (RecorderRow) TableName() string {
	return "recorders"
}

// IsEnabled returns the effective enabled flag, defaulting to true.
func (r RecorderRow) IsEnabled() bool {
	return BoolVal(r.Enabled)
}

// RecordRow is the durable representation of one recorded session
// (archive), as exposed to the host.
type RecordRow struct {
	BaseModel

	Platform Platform `gorm:"not null;size:20;index:idx_record_room" json:"platform"`
	RoomID   string   `gorm:"not null;size:255;index:idx_record_room" json:"room_id"`
	// LiveID is the Recorder-assigned millisecond-epoch session id.
	LiveID int64 `gorm:"not null;uniqueIndex:idx_record_live" json:"live_id"`

	Title    string  `gorm:"size:512" json:"title,omitempty"`
	Cover    string  `gorm:"size:2048" json:"cover,omitempty"`
	StartTS  Time    `json:"start_ts"`
	Duration float64 `json:"duration"`
	Size     int64   `json:"size"`

	// ParentID links a session extended after a StreamExpired recovery
	// (the should_continue path) back to the archive it continues.
	ParentID *ULID `gorm:"type:varchar(26);index" json:"parent_id,omitempty"`
}

// TableName returns the table name for RecordRow.
func (RecordRow) TableName() string {
	return "records"
}

// AccountRow is the durable credential bundle for a platform account.
type AccountRow struct {
	BaseModel

	Platform Platform `gorm:"not null;size:20;uniqueIndex:idx_account_platform_user" json:"platform"`
	UserID   string   `gorm:"not null;size:255;uniqueIndex:idx_account_platform_user" json:"user_id"`
	Name     string   `gorm:"size:255" json:"name,omitempty"`
	Avatar   string   `gorm:"size:2048" json:"avatar,omitempty"`
	Cookies  string   `gorm:"type:text" json:"-"`
	CSRF     string   `gorm:"size:255" json:"-"`
}

// TableName returns the table name for AccountRow.
func (AccountRow) TableName() string {
	return "accounts"
}

// ToAccount converts the durable row into the in-memory credential bundle
// consumed by Platform Clients.
func (a AccountRow) ToAccount() Account {
	return Account{
		Platform:  a.Platform,
		UserID:    a.UserID,
		Cookies:   a.Cookies,
		CSRFToken: a.CSRF,
	}
}
