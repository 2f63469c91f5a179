package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nomiwang10/InkRush/internal/protocol"
)

// 游戏总体分为 5 个阶段，分别是：
// 1. 等待阶段（Waiting）：大厅状态，玩家注册用户名，等待队长开始游戏
// 2. 选词阶段（Picking）：选出本轮画手，画手在 3 个候选词中选择
// 3. 绘画阶段（Drawing）：画手作画，其余玩家限时猜词
// 4. 幕间阶段（Intermission）：回合结束后的短暂停顿，随后进入下一轮选词
// 5. 结算阶段（GameOver）：广播最终排行榜，延时后重置回等待阶段
const (
	STAGE_WAITING      = "Waiting"
	STAGE_PICKING      = "Picking"
	STAGE_DRAWING      = "Drawing"
	STAGE_INTERMISSION = "Intermission"
	STAGE_GAME_OVER    = "GameOver"
)

const (
	// 回合之间的幕间时长
	INTERMISSION_DELAY = 5 * time.Second
	// 结算展示时长，之后重置回大厅
	GAME_OVER_DELAY = 10 * time.Second
)

// 等待阶段是整个游戏最初始的阶段
type waitStageHandler struct {
	onSwitch func(string)
}

func NewWaitStageHandler() *waitStageHandler {
	return &waitStageHandler{}
}

func (wsh *waitStageHandler) Stage() string {
	return STAGE_WAITING
}

func (wsh *waitStageHandler) OnEnter(ctx *GameContext) {
	// 注意：不清空玩家名单，结算后的重置要保留仍在线的注册
	ctx.GameStarted = false
}

func (wsh *waitStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if req.Timeout != nil {
		return nil
	}

	if req.Frame == nil {
		return errors.New("等待阶段收到未知事件")
	}

	clientID := req.Frame.ClientID
	msg := req.Frame.Msg

	switch msg.Type {
	case protocol.MSG_USERNAME:
		return handleUsername(ctx, clientID, msg)

	case protocol.MSG_CHAT:
		return handleChat(ctx, clientID, msg)

	case protocol.MSG_GUESS:
		return handleGuessAsChat(ctx, clientID, msg)

	case protocol.MSG_START_GAME:
		if ctx.GameStarted {
			return nil
		}

		if clientID != ctx.LeaderID {
			return errors.New("无法开始游戏：只有队长可以开始游戏")
		}

		ctx.GameStarted = true
		wsh.onSwitch(STAGE_PICKING)

		return nil

	case protocol.MSG_DRAW, protocol.MSG_CLEAR, protocol.MSG_WORD_SELECTED:
		// 大厅里没有画手，全部拒绝
		return errors.New("等待阶段不接受绘画类请求")
	}

	return errors.New("等待阶段不支持该请求类型")
}

func (wsh *waitStageHandler) OnTick(ctx *GameContext) {
}

func (wsh *waitStageHandler) OnExit(ctx *GameContext) {
}

func (wsh *waitStageHandler) SetOnSwitch(onSwitch func(string)) {
	wsh.onSwitch = onSwitch
}

// 选词阶段处理器
type pickStageHandler struct {
	onSwitch func(string)
}

func NewPickStageHandler() *pickStageHandler {
	return &pickStageHandler{}
}

func (psh *pickStageHandler) Stage() string {
	return STAGE_PICKING
}

func (psh *pickStageHandler) OnEnter(ctx *GameContext) {
	ctx.Match.IncrementRound()

	ctx.Broadcast(protocol.NewRoundUpdateMessage(ctx.Match.CurrentRound()))
	ctx.Broadcast(protocol.NewClearMessage())

	psh.beginSelection(ctx)
}

// beginSelection 选出画手并下发候选词
// 画手在选词前掉线时会被 OnTick 再次调用，此时不重复累计轮数
func (psh *pickStageHandler) beginSelection(ctx *GameContext) {
	m := ctx.Match

	drawerID, options, ok := m.StartNewRound()
	if !ok {
		zap.L().Warn(
			"无法开始新回合：没有玩家，退回等待阶段",
			zap.String("session_id", ctx.SessionID),
		)

		ctx.GameStarted = false
		psh.onSwitch(STAGE_WAITING)

		return
	}

	ctx.Unicast(drawerID, protocol.NewWordOptionsMessage(options))
	ctx.Unicast(drawerID, protocol.NewDrawerAssignedMessage())

	ctx.BroadcastExcept(
		protocol.NewChatMessage(
			"SERVER",
			"Waiting for "+m.PlayerName(drawerID)+" to choose a word...",
		),
		drawerID,
	)

	zap.L().Info(
		"等待画手选词",
		zap.String("session_id", ctx.SessionID),
		zap.Int("drawer_id", drawerID),
		zap.Int("round", m.CurrentRound()),
	)
}

func (psh *pickStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if req.Timeout != nil {
		return nil
	}

	if req.Frame == nil {
		return errors.New("选词阶段收到未知事件")
	}

	clientID := req.Frame.ClientID
	msg := req.Frame.Msg

	switch msg.Type {
	case protocol.MSG_WORD_SELECTED:
		if clientID != ctx.Match.CurrentDrawerID() {
			return errors.New("无法选词：只有当前画手可以选词")
		}

		if !ctx.Match.ValidateAndSetWord(msg.Contents) {
			// 选择不在候选之内，只通知画手本人
			ctx.Unicast(clientID, protocol.NewChatMessage("SERVER", "Invalid word selection."))
			return nil
		}

		ctx.Broadcast(protocol.NewClearMessage())
		psh.onSwitch(STAGE_DRAWING)

		return nil

	case protocol.MSG_USERNAME:
		return handleUsername(ctx, clientID, msg)

	case protocol.MSG_CHAT:
		return handleChat(ctx, clientID, msg)

	case protocol.MSG_GUESS:
		// 词还没定，猜词只是普通聊天
		return handleGuessAsChat(ctx, clientID, msg)

	case protocol.MSG_DRAW:
		return handleDraw(ctx, clientID, msg)

	case protocol.MSG_CLEAR:
		return handleClear(ctx, clientID, msg)

	case protocol.MSG_START_GAME:
		// 已开始，重复的开始事件直接吞掉
		return nil
	}

	return errors.New("选词阶段不支持该请求类型")
}

func (psh *pickStageHandler) OnTick(ctx *GameContext) {
	// 画手在选词前掉线：轮换索引没有推进过，
	// 重新选择会落在同一个位置上（由断线时的名单收敛决定）
	if _, ok := ctx.Conns[ctx.Match.CurrentDrawerID()]; !ok {
		zap.L().Info(
			"画手在选词前掉线，重新选择画手",
			zap.String("session_id", ctx.SessionID),
		)

		psh.beginSelection(ctx)
	}
}

func (psh *pickStageHandler) OnExit(ctx *GameContext) {
}

func (psh *pickStageHandler) SetOnSwitch(onSwitch func(string)) {
	psh.onSwitch = onSwitch
}

// 绘画阶段处理器
type drawStageHandler struct {
	onSwitch func(string)
}

func NewDrawStageHandler() *drawStageHandler {
	return &drawStageHandler{}
}

func (dsh *drawStageHandler) Stage() string {
	return STAGE_DRAWING
}

func (dsh *drawStageHandler) OnEnter(ctx *GameContext) {
	m := ctx.Match

	word := m.CurrentWord()
	hint := m.WordHint()

	// 选词期间消耗的时间不计入回合，从这里重新起算
	m.ResetTimer()

	// 画手收到明文词，其他人收到提示
	ctx.Unicast(
		m.CurrentDrawerID(),
		protocol.NewRoundStartMessage(word, ROUND_DURATION_SECONDS),
	)
	ctx.BroadcastExcept(
		protocol.NewRoundStartMessage(hint, ROUND_DURATION_SECONDS),
		m.CurrentDrawerID(),
	)

	zap.L().Info(
		"回合开始",
		zap.String("session_id", ctx.SessionID),
		zap.Int("round", m.CurrentRound()),
		zap.Int("drawer_id", m.CurrentDrawerID()),
		zap.String("word", word),
	)
}

func (dsh *drawStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if req.Timeout != nil {
		return nil
	}

	if req.Frame == nil {
		return errors.New("绘画阶段收到未知事件")
	}

	clientID := req.Frame.ClientID
	msg := req.Frame.Msg

	switch msg.Type {
	case protocol.MSG_GUESS:
		return dsh.handleGuess(ctx, clientID, msg)

	case protocol.MSG_DRAW:
		return handleDraw(ctx, clientID, msg)

	case protocol.MSG_CLEAR:
		return handleClear(ctx, clientID, msg)

	case protocol.MSG_CHAT:
		return handleChat(ctx, clientID, msg)

	case protocol.MSG_USERNAME:
		// 中途加入的玩家作为猜词方参与本轮
		return handleUsername(ctx, clientID, msg)

	case protocol.MSG_START_GAME, protocol.MSG_WORD_SELECTED:
		return nil
	}

	return errors.New("绘画阶段不支持该请求类型")
}

func (dsh *drawStageHandler) handleGuess(ctx *GameContext, clientID int, msg protocol.Message) error {
	data, err := msg.ParseGuess()
	if err != nil {
		ctx.Unicast(clientID, protocol.NewChatMessage("SERVER", "Invalid guess format."))
		return err
	}

	m := ctx.Match

	// 画手随时可以聊天，但没有猜词语义
	if clientID == m.CurrentDrawerID() {
		ctx.Broadcast(protocol.NewChatMessage(data.Username, data.Guess))
		return nil
	}

	// 已猜中的玩家，发言只回显给画手和其他已猜中者，防止泄底
	if m.HasGuessedCorrectly(clientID) {
		ctx.BroadcastToGuessers(protocol.NewChatMessage(data.Username, data.Guess))
		return nil
	}

	if !m.CheckGuess(data.Guess) {
		// 猜错了，当普通聊天广播
		ctx.Broadcast(protocol.NewChatMessage(data.Username, data.Guess))
		return nil
	}

	points := m.AwardPoints(clientID)

	// 分数变化只单播给当事双方
	ctx.Unicast(clientID, protocol.NewScoreMessage(m.PlayerScore(clientID)))

	drawerID := m.CurrentDrawerID()
	if _, ok := ctx.Conns[drawerID]; ok {
		ctx.Unicast(drawerID, protocol.NewScoreMessage(m.PlayerScore(drawerID)))
	}

	ctx.Unicast(clientID, protocol.NewChatMessage(
		"SERVER",
		fmt.Sprintf("You guessed the word! +%d points", points),
	))
	ctx.BroadcastExcept(protocol.NewChatMessage(
		"SERVER",
		data.Username+" guessed the word!",
	), clientID)

	broadcastLeaderboard(ctx)

	// 除画手外全员猜中：立即收束本轮，不等下一次心跳
	if m.GuessCount() >= m.PlayerCount()-1 {
		dsh.endRound(ctx, "Everyone guessed correctly!")
	}

	return nil
}

func (dsh *drawStageHandler) OnTick(ctx *GameContext) {
	m := ctx.Match

	if m.IsTimeUp() {
		dsh.endRound(ctx, "Time is up!")
		return
	}

	if m.PlayerCount() > 1 && m.GuessCount() >= m.PlayerCount()-1 {
		dsh.endRound(ctx, "Everyone guessed correctly!")
	}
}

// endRound 收束本轮：公布谜底和排行榜，然后进入幕间或结算
func (dsh *drawStageHandler) endRound(ctx *GameContext, reason string) {
	m := ctx.Match

	if !m.RoundActive() {
		return
	}

	word := m.CurrentWord()
	m.EndRound()

	zap.L().Info(
		"回合结束",
		zap.String("session_id", ctx.SessionID),
		zap.Int("round", m.CurrentRound()),
		zap.String("reason", reason),
	)

	ctx.Broadcast(protocol.NewChatMessage("SERVER", reason+" Word was: "+word))
	broadcastLeaderboard(ctx)

	if m.IsGameComplete() {
		dsh.onSwitch(STAGE_GAME_OVER)
	} else {
		dsh.onSwitch(STAGE_INTERMISSION)
	}
}

func (dsh *drawStageHandler) OnExit(ctx *GameContext) {
}

func (dsh *drawStageHandler) SetOnSwitch(onSwitch func(string)) {
	dsh.onSwitch = onSwitch
}

// 幕间阶段处理器
type intermissionStageHandler struct {
	onSwitch func(string)
}

func NewIntermissionStageHandler() *intermissionStageHandler {
	return &intermissionStageHandler{}
}

func (ish *intermissionStageHandler) Stage() string {
	return STAGE_INTERMISSION
}

func (ish *intermissionStageHandler) OnEnter(ctx *GameContext) {
	ctx.SetTimeout(INTERMISSION_DELAY)
}

func (ish *intermissionStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if req.Timeout != nil {
		if req.Timeout.Stage == STAGE_INTERMISSION {
			ish.onSwitch(STAGE_PICKING)
		}

		return nil
	}

	if req.Frame == nil {
		return errors.New("幕间阶段收到未知事件")
	}

	clientID := req.Frame.ClientID
	msg := req.Frame.Msg

	switch msg.Type {
	case protocol.MSG_CHAT:
		return handleChat(ctx, clientID, msg)

	case protocol.MSG_GUESS:
		return handleGuessAsChat(ctx, clientID, msg)

	case protocol.MSG_USERNAME:
		return handleUsername(ctx, clientID, msg)
	}

	return errors.New("幕间阶段不支持该请求类型")
}

func (ish *intermissionStageHandler) OnTick(ctx *GameContext) {
}

func (ish *intermissionStageHandler) OnExit(ctx *GameContext) {
	ctx.ClearTimeout()
}

func (ish *intermissionStageHandler) SetOnSwitch(onSwitch func(string)) {
	ish.onSwitch = onSwitch
}

// 结算阶段处理器
type gameOverStageHandler struct {
	onSwitch func(string)
}

func NewGameOverStageHandler() *gameOverStageHandler {
	return &gameOverStageHandler{}
}

func (gsh *gameOverStageHandler) Stage() string {
	return STAGE_GAME_OVER
}

func (gsh *gameOverStageHandler) OnEnter(ctx *GameContext) {
	// 最终排行榜格式："name:score:name:score..."
	board := ctx.Match.Leaderboard()

	var sb strings.Builder
	for _, p := range board {
		if sb.Len() > 0 {
			sb.WriteByte(':')
		}
		sb.WriteString(p.Name)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(p.Score))
	}

	ctx.Broadcast(protocol.NewGameOverMessage(sb.String()))

	zap.L().Info(
		"游戏结束，公布排行榜",
		zap.String("session_id", ctx.SessionID),
		zap.String("leaderboard", sb.String()),
	)

	ctx.SetTimeout(GAME_OVER_DELAY)
}

func (gsh *gameOverStageHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if req.Timeout != nil {
		if req.Timeout.Stage == STAGE_GAME_OVER {
			gsh.resetToLobby(ctx)
			gsh.onSwitch(STAGE_WAITING)
		}

		return nil
	}

	if req.Frame == nil {
		return errors.New("结算阶段收到未知事件")
	}

	clientID := req.Frame.ClientID
	msg := req.Frame.Msg

	switch msg.Type {
	case protocol.MSG_CHAT:
		return handleChat(ctx, clientID, msg)

	case protocol.MSG_GUESS:
		return handleGuessAsChat(ctx, clientID, msg)

	case protocol.MSG_USERNAME:
		return handleUsername(ctx, clientID, msg)
	}

	return errors.New("结算阶段不支持该请求类型")
}

// resetToLobby 清零比分、清空画布和排行榜，重新授权队长开局
// 在线玩家的注册保留，断开的连接不会复活
func (gsh *gameOverStageHandler) resetToLobby(ctx *GameContext) {
	ctx.Match.ResetGame()

	ctx.Broadcast(protocol.NewClearMessage())
	ctx.Broadcast(protocol.NewChatMessage("SERVER", "Lobby has been reset. Waiting for leader..."))

	for clientID := range ctx.Conns {
		ctx.Unicast(clientID, protocol.NewScoreMessage(0))
	}

	ctx.Broadcast(protocol.NewLeaderboardMessage(""))

	if ctx.LeaderID != -1 {
		ctx.Unicast(ctx.LeaderID, protocol.NewLeaderMessage())
	}

	zap.L().Info(
		"重置回大厅",
		zap.String("session_id", ctx.SessionID),
	)
}

func (gsh *gameOverStageHandler) OnTick(ctx *GameContext) {
}

func (gsh *gameOverStageHandler) OnExit(ctx *GameContext) {
	ctx.ClearTimeout()
}

func (gsh *gameOverStageHandler) SetOnSwitch(onSwitch func(string)) {
	gsh.onSwitch = onSwitch
}

// 以下是各阶段共用的帧处理逻辑

// handleUsername 注册玩家
// 回合进行中加入的玩家立即收到当前提示和剩余时间，可以直接参与猜词
func handleUsername(ctx *GameContext, clientID int, msg protocol.Message) error {
	username := strings.TrimSpace(msg.Contents)
	if username == "" {
		return errors.New("用户名不能为空")
	}

	ctx.Match.AddPlayer(clientID, username)

	zap.L().Info(
		"玩家注册",
		zap.String("session_id", ctx.SessionID),
		zap.Int("client_id", clientID),
		zap.String("username", username),
	)

	if ctx.Match.RoundActive() && ctx.Match.CurrentWord() != "" {
		ctx.Unicast(clientID, protocol.NewRoundStartMessage(
			ctx.Match.WordHint(),
			ctx.Match.TimeRemaining(),
		))
	}

	return nil
}

// handleChat 原样广播聊天，格式不合法时只回复发送方
func handleChat(ctx *GameContext, clientID int, msg protocol.Message) error {
	if _, err := msg.ParseChat(); err != nil {
		ctx.Unicast(clientID, protocol.NewChatMessage("SERVER", "Invalid chat format."))
		return err
	}

	ctx.Broadcast(msg)

	return nil
}

// handleGuessAsChat 在没有有效谜底的阶段把猜词降级为聊天
func handleGuessAsChat(ctx *GameContext, clientID int, msg protocol.Message) error {
	data, err := msg.ParseGuess()
	if err != nil {
		ctx.Unicast(clientID, protocol.NewChatMessage("SERVER", "Invalid guess format."))
		return err
	}

	ctx.Broadcast(protocol.NewChatMessage(data.Username, data.Guess))

	return nil
}

// handleDraw 校验并转发画笔点，只有当前画手有权绘画
func handleDraw(ctx *GameContext, clientID int, msg protocol.Message) error {
	if clientID != ctx.Match.CurrentDrawerID() {
		return errors.New("无法绘画：发送方不是当前画手")
	}

	if _, err := msg.ParseDraw(); err != nil {
		return err
	}

	ctx.BroadcastExcept(msg, clientID)

	return nil
}

// handleClear 清空画布，只有当前画手有权操作
func handleClear(ctx *GameContext, clientID int, msg protocol.Message) error {
	if clientID != ctx.Match.CurrentDrawerID() {
		return errors.New("无法清空画布：发送方不是当前画手")
	}

	ctx.BroadcastExcept(msg, clientID)

	return nil
}

// broadcastLeaderboard 推送 "name,score,name,score..." 形式的排行榜
func broadcastLeaderboard(ctx *GameContext) {
	board := ctx.Match.Leaderboard()

	var sb strings.Builder
	for _, p := range board {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Name)
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(p.Score))
	}

	ctx.Broadcast(protocol.NewLeaderboardMessage(sb.String()))
}
