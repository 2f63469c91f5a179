package dto

// 对外快照中的玩家信息
type PlayerInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// SessionSnapshot 是 HTTP 查询接口返回的会话快照
// Players 按排行榜顺序排列（分数降序，同分按加入顺序）
type SessionSnapshot struct {
	SessionID     string       `json:"session_id"`
	Stage         string       `json:"stage"`
	Round         int          `json:"round"`
	MaxRounds     int          `json:"max_rounds"`
	LeaderID      int          `json:"leader_id"`
	DrawerID      int          `json:"drawer_id"`
	TimeRemaining int          `json:"time_remaining"`
	GameStarted   bool         `json:"game_started"`
	Players       []PlayerInfo `json:"players"`
}
