package game

import (
	"sort"
	"strings"
	"time"
)

const (
	// 每轮绘画时长，单位秒
	ROUND_DURATION_SECONDS = 60
	// 一局游戏的总轮数
	MAX_ROUNDS = 5
	// 单个词在一局游戏内的使用上限，达到后进入排除集
	WORD_USAGE_LIMIT = 1
)

// Match 是比赛的权威数据模型：玩家、轮次、计分、画手轮换
// 它本身不做任何同步，所有读写都必须发生在状态机协程内
type Match struct {
	words WordSupplier

	players     map[int]*Player
	playerOrder []int
	drawerIndex int

	currentDrawerID    int
	currentWord        string
	currentWordOptions []string
	wordUsageCount     map[string]int

	roundStartTime time.Time
	roundActive    bool

	correctGuessers map[int]struct{}
	guessCount      int

	currentRound int

	// 测试中可替换的时钟
	now func() time.Time
}

func NewMatch(words WordSupplier) *Match {
	return &Match{
		words:           words,
		players:         make(map[int]*Player),
		playerOrder:     make([]int, 0),
		currentDrawerID: -1,
		wordUsageCount:  make(map[string]int),
		correctGuessers: make(map[int]struct{}),
		now:             time.Now,
	}
}

// AddPlayer 注册一名玩家并追加到轮换顺序末尾
func (m *Match) AddPlayer(id int, name string) {
	m.players[id] = &Player{ID: id, Name: name}
	m.playerOrder = append(m.playerOrder, id)
}

// RemovePlayer 注销玩家
// 如果被移除的是当前画手，轮换索引只做范围收敛，本轮是否结束由调用方决定
func (m *Match) RemovePlayer(id int) {
	delete(m.players, id)

	for i, pid := range m.playerOrder {
		if pid == id {
			m.playerOrder = append(m.playerOrder[:i], m.playerOrder[i+1:]...)
			break
		}
	}

	if len(m.playerOrder) > 0 && m.drawerIndex >= len(m.playerOrder) {
		m.drawerIndex = 0
	}
}

// StartNewRound 按轮换顺序选出下一位画手，并从词库取 3 个候选词
// 没有玩家时返回 ok=false
// 注意：这里不设置 currentWord，最终的词由画手在候选中选择
func (m *Match) StartNewRound() (drawerID int, options []string, ok bool) {
	if len(m.playerOrder) == 0 {
		return 0, nil, false
	}

	if m.drawerIndex >= len(m.playerOrder) {
		m.drawerIndex = 0
	}

	m.currentDrawerID = m.playerOrder[m.drawerIndex]

	// 收集已经达到使用上限的词作为排除集
	excluded := make([]string, 0, len(m.wordUsageCount))
	for word, count := range m.wordUsageCount {
		if count >= WORD_USAGE_LIMIT {
			excluded = append(excluded, word)
		}
	}

	chosen := m.words.ThreeWords(excluded)

	// 词池在当前排除条件下耗尽：清空使用记录后重试一次
	if len(chosen) < 3 {
		m.wordUsageCount = make(map[string]int)
		chosen = m.words.ThreeWords(nil)
	}

	m.currentWordOptions = chosen

	m.roundStartTime = m.now()
	m.roundActive = true

	m.correctGuessers = make(map[int]struct{})
	m.guessCount = 0

	return m.currentDrawerID, chosen, true
}

// ValidateAndSetWord 校验画手选择的词是否在候选之中（忽略大小写和首尾空白）
// 成功时设置 currentWord、累计使用次数、清空候选，并为下一轮推进轮换索引
// 轮换在选词时而不是回合结束时提交：画手在选词前掉线不会错误地跳过轮次
func (m *Match) ValidateAndSetWord(word string) bool {
	if len(m.currentWordOptions) == 0 {
		return false
	}

	trimmed := strings.TrimSpace(word)

	for _, option := range m.currentWordOptions {
		if strings.EqualFold(option, trimmed) {
			m.currentWord = trimmed
			m.wordUsageCount[m.currentWord]++
			m.currentWordOptions = nil

			if len(m.playerOrder) > 0 {
				m.drawerIndex = (m.drawerIndex + 1) % len(m.playerOrder)
			}

			return true
		}
	}

	return false
}

// CheckGuess 判断猜词是否命中，忽略大小写和首尾空白
func (m *Match) CheckGuess(guess string) bool {
	if !m.roundActive || m.currentWord == "" {
		return false
	}

	return strings.EqualFold(m.currentWord, strings.TrimSpace(guess))
}

// AwardPoints 按剩余时间为猜中者计分，画手获得等额奖励
// 同一轮内重复调用或画手自猜均返回 0 且不产生任何修改
func (m *Match) AwardPoints(guesserID int) int {
	if _, done := m.correctGuessers[guesserID]; done {
		return 0
	}

	if guesserID == m.currentDrawerID {
		return 0
	}

	guesser, ok := m.players[guesserID]
	if !ok {
		return 0
	}

	points := m.TimeRemaining()

	guesser.Score += points

	// 画手同样加分：画得越快越清楚，收益越高
	if drawer, ok := m.players[m.currentDrawerID]; ok {
		drawer.Score += points
	}

	m.correctGuessers[guesserID] = struct{}{}
	m.guessCount++

	return points
}

func (m *Match) HasGuessedCorrectly(id int) bool {
	_, ok := m.correctGuessers[id]
	return ok
}

func (m *Match) GuessCount() int {
	return m.guessCount
}

// EndRound 清理本轮状态，可重复调用
func (m *Match) EndRound() {
	m.roundActive = false
	m.currentWord = ""
	m.correctGuessers = make(map[int]struct{})
	m.guessCount = 0
}

// TimeRemaining 返回本轮剩余秒数，回合未激活时返回 0
func (m *Match) TimeRemaining() int {
	if !m.roundActive {
		return 0
	}

	elapsed := int(m.now().Sub(m.roundStartTime) / time.Second)

	remaining := ROUND_DURATION_SECONDS - elapsed
	if remaining < 0 {
		return 0
	}

	return remaining
}

func (m *Match) IsTimeUp() bool {
	return m.roundActive && m.TimeRemaining() <= 0
}

// ResetTimer 把计时起点重置为当前时刻
// 在画手确定最终词、绘画正式开始时调用
func (m *Match) ResetTimer() {
	m.roundStartTime = m.now()
}

// WordHint 生成给猜词方展示的提示：
// 每个字母变成 "_ "，词中间的空格变成三个空格以区分多词短语，首尾空白去除
func (m *Match) WordHint() string {
	if m.currentWord == "" {
		return ""
	}

	var hint strings.Builder

	for _, c := range m.currentWord {
		if c == ' ' {
			hint.WriteString("   ")
		} else {
			hint.WriteString("_ ")
		}
	}

	return strings.TrimSpace(hint.String())
}

func (m *Match) CurrentWord() string {
	return m.currentWord
}

func (m *Match) CurrentDrawerID() int {
	return m.currentDrawerID
}

func (m *Match) RoundActive() bool {
	return m.roundActive
}

func (m *Match) IncrementRound() {
	m.currentRound++
}

func (m *Match) CurrentRound() int {
	return m.currentRound
}

func (m *Match) IsGameComplete() bool {
	return m.currentRound >= MAX_ROUNDS
}

func (m *Match) PlayerCount() int {
	return len(m.players)
}

func (m *Match) PlayerScore(id int) int {
	if p, ok := m.players[id]; ok {
		return p.Score
	}

	return 0
}

func (m *Match) PlayerName(id int) string {
	if p, ok := m.players[id]; ok {
		return p.Name
	}

	return ""
}

// Leaderboard 返回按分数降序排列的玩家副本
// 同分时保持加入顺序（稳定排序遍历的是 playerOrder）
func (m *Match) Leaderboard() []Player {
	board := make([]Player, 0, len(m.playerOrder))

	for _, id := range m.playerOrder {
		if p, ok := m.players[id]; ok {
			board = append(board, *p)
		}
	}

	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Score > board[j].Score
	})

	return board
}

// ResetGame 把比赛拉回等待状态：轮次和分数清零，玩家名单保留
func (m *Match) ResetGame() {
	m.currentRound = 0
	m.currentDrawerID = -1

	for _, p := range m.players {
		p.Score = 0
	}

	m.EndRound()
}
