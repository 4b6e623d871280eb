package model

// UserMeta is a per-user row carrying the graph-cache invalidation marker.
// Row identity is pk=user#{user}, sk=meta.
type UserMeta struct {
	User           string `json:"user" gorm:"primaryKey;column:user_id;type:varchar(80)"`
	LastDataChange int64  `json:"lastDataChange" gorm:"column:last_data_change"`
}

// TableName pins the gorm table name.
func (UserMeta) TableName() string { return "user_meta" }
