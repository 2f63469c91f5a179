package game

// WordSupplier 是词库的唯一入口
// 给定需要排除的词，返回最多 3 个候选词，顺序不做保证
// 当前排除条件下词池耗尽时允许返回不足 3 个，由调用方清空排除后重试
type WordSupplier interface {
	ThreeWords(excluded []string) []string
}

// Player 是比赛中的一名玩家，在收到 USERNAME 帧后注册
// 只由状态机协程读写
type Player struct {
	ID    int
	Name  string
	Score int
}
