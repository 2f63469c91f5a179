package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nomiwang10/InkRush/internal/protocol"
)

// machineHarness 同步驱动状态机的事件处理，绕过 Start 的事件循环，
// 让每条断言都发生在确定的状态上
type machineHarness struct {
	gm    *GameMachine
	chans map[int]chan protocol.Message
	now   time.Time
}

func newMachineHarness(t *testing.T) *machineHarness {
	gm := NewGameMachine("test-session", &fakeSupplier{
		pool: []string{"Giraffe", "Pizza", "Umbrella", "Volcano", "Penguin", "Telescope"},
	}, make(chan struct{}))

	h := &machineHarness{
		gm:    gm,
		chans: make(map[int]chan protocol.Message),
		now:   time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
	}

	gm.ctx.Match.now = func() time.Time { return h.now }

	gm.handler.OnEnter(gm.ctx)
	gm.syncStage()

	return h
}

func (h *machineHarness) dispatch(req RequestWrapper) {
	if !h.gm.handleSessionEvent(req) {
		h.gm.handler.OnHandle(h.gm.ctx, req)
	}

	h.gm.syncStage()
}

func (h *machineHarness) connect(clientID int) {
	sendCh := make(chan protocol.Message, 64)
	h.chans[clientID] = sendCh

	h.dispatch(RequestWrapper{
		Connect: &ConnectRequest{ClientID: clientID, SendCh: sendCh},
	})
}

func (h *machineHarness) disconnect(clientID int) {
	h.dispatch(RequestWrapper{
		Disconnect: &DisconnectRequest{ClientID: clientID},
	})
}

func (h *machineHarness) frame(clientID int, msg protocol.Message) {
	h.dispatch(RequestWrapper{
		Frame: &FrameRequest{ClientID: clientID, Msg: msg},
	})
}

func (h *machineHarness) tick() {
	h.gm.handler.OnTick(h.gm.ctx)
	h.gm.syncStage()
}

// drain 取出某连接已收到的全部消息
func (h *machineHarness) drain(clientID int) []protocol.Message {
	msgs := make([]protocol.Message, 0)

	for {
		select {
		case msg := <-h.chans[clientID]:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func findByType(msgs []protocol.Message, msgType string) (protocol.Message, bool) {
	for _, msg := range msgs {
		if msg.Type == msgType {
			return msg, true
		}
	}

	return protocol.Message{}, false
}

func countByType(msgs []protocol.Message, msgType string) int {
	n := 0
	for _, msg := range msgs {
		if msg.Type == msgType {
			n++
		}
	}

	return n
}

// setupLobby 接入三名玩家并注册用户名，1 号是队长
func setupLobby(h *machineHarness) {
	h.connect(1)
	h.connect(2)
	h.connect(3)

	h.frame(1, protocol.NewUsernameMessage("alice"))
	h.frame(2, protocol.NewUsernameMessage("bob"))
	h.frame(3, protocol.NewUsernameMessage("carol"))

	for id := 1; id <= 3; id++ {
		h.drain(id)
	}
}

func TestMachine_ConnectAssignsLeader(t *testing.T) {
	h := newMachineHarness(t)

	h.connect(1)
	h.connect(2)

	first := h.drain(1)

	connected, ok := findByType(first, protocol.MSG_CONNECTED)
	assert.True(t, ok)

	id, err := connected.ParseConnected()
	assert.NoError(t, err)
	assert.Equal(t, 1, id)

	_, ok = findByType(first, protocol.MSG_LEADER)
	assert.True(t, ok)

	second := h.drain(2)

	_, ok = findByType(second, protocol.MSG_CONNECTED)
	assert.True(t, ok)

	_, ok = findByType(second, protocol.MSG_LEADER)
	assert.False(t, ok)
}

func TestMachine_StartGameRequiresLeader(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)

	h.frame(2, protocol.NewStartGameMessage())
	assert.Equal(t, STAGE_WAITING, h.gm.ctx.GameStage)

	h.frame(1, protocol.NewStartGameMessage())
	assert.Equal(t, STAGE_PICKING, h.gm.ctx.GameStage)
}

func TestMachine_PickingNotifiesDrawerAndOthers(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)

	h.frame(1, protocol.NewStartGameMessage())

	drawerMsgs := h.drain(1)

	roundUpdate, ok := findByType(drawerMsgs, protocol.MSG_ROUND_UPDATE)
	assert.True(t, ok)
	round, _ := roundUpdate.ParseInt()
	assert.Equal(t, 1, round)

	options, ok := findByType(drawerMsgs, protocol.MSG_WORD_OPTIONS)
	assert.True(t, ok)
	assert.Equal(t, "Giraffe,Pizza,Umbrella", options.Contents)

	_, ok = findByType(drawerMsgs, protocol.MSG_DRAWER_ASSIGNED)
	assert.True(t, ok)

	otherMsgs := h.drain(2)

	// 候选词只发给画手
	_, ok = findByType(otherMsgs, protocol.MSG_WORD_OPTIONS)
	assert.False(t, ok)

	notice, ok := findByType(otherMsgs, protocol.MSG_CHAT)
	assert.True(t, ok)
	assert.Equal(t, "SERVER:Waiting for alice to choose a word...", notice.Contents)
}

func TestMachine_WordSelectionValidation(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)

	h.frame(1, protocol.NewStartGameMessage())
	h.drain(1)
	h.drain(2)

	// 非画手无权选词
	h.frame(2, protocol.NewWordSelectedMessage("Giraffe"))
	assert.Equal(t, STAGE_PICKING, h.gm.ctx.GameStage)

	// 候选之外的词被拒绝，只通知画手
	h.frame(1, protocol.NewWordSelectedMessage("Dinosaur"))
	assert.Equal(t, STAGE_PICKING, h.gm.ctx.GameStage)

	rejected, ok := findByType(h.drain(1), protocol.MSG_CHAT)
	assert.True(t, ok)
	assert.Equal(t, "SERVER:Invalid word selection.", rejected.Contents)
	assert.Empty(t, h.drain(2))

	// 合法选词进入绘画阶段，忽略大小写
	h.frame(1, protocol.NewWordSelectedMessage("giraffe"))
	assert.Equal(t, STAGE_DRAWING, h.gm.ctx.GameStage)

	drawerStart, ok := findByType(h.drain(1), protocol.MSG_ROUND_START)
	assert.True(t, ok)

	data, err := drawerStart.ParseRoundStart()
	assert.NoError(t, err)
	assert.Equal(t, "giraffe", data.Word)
	assert.Equal(t, ROUND_DURATION_SECONDS, data.Duration)

	guesserStart, ok := findByType(h.drain(2), protocol.MSG_ROUND_START)
	assert.True(t, ok)

	data, err = guesserStart.ParseRoundStart()
	assert.NoError(t, err)
	assert.Equal(t, "_ _ _ _ _ _ _", data.Word)
}

// startDrawing 把比赛推进到绘画阶段，1 号为画手，词为 Giraffe
func startDrawing(h *machineHarness) {
	h.frame(1, protocol.NewStartGameMessage())
	h.frame(1, protocol.NewWordSelectedMessage("Giraffe"))

	for id := 1; id <= 3; id++ {
		h.drain(id)
	}
}

func TestMachine_WrongGuessBroadcastAsChat(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)
	startDrawing(h)

	h.frame(2, protocol.NewGuessMessage("bob", "Elephant"))

	chat, ok := findByType(h.drain(3), protocol.MSG_CHAT)
	assert.True(t, ok)
	assert.Equal(t, "bob:Elephant", chat.Contents)

	assert.Equal(t, 0, h.gm.ctx.Match.PlayerScore(2))
}

func TestMachine_CorrectGuessAwardsBothParties(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)
	startDrawing(h)

	// 15 秒后猜中，剩余 45 秒即 45 分
	h.now = h.now.Add(15 * time.Second)

	h.frame(2, protocol.NewGuessMessage("bob", "GIRAFFE"))

	assert.Equal(t, 45, h.gm.ctx.Match.PlayerScore(2))
	assert.Equal(t, 45, h.gm.ctx.Match.PlayerScore(1))

	guesserMsgs := h.drain(2)

	score, ok := findByType(guesserMsgs, protocol.MSG_SCORE)
	assert.True(t, ok)
	n, _ := score.ParseInt()
	assert.Equal(t, 45, n)

	notice, ok := findByType(guesserMsgs, protocol.MSG_CHAT)
	assert.True(t, ok)
	assert.Equal(t, "SERVER:You guessed the word! +45 points", notice.Contents)

	_, ok = findByType(guesserMsgs, protocol.MSG_LEADERBOARD)
	assert.True(t, ok)

	drawerMsgs := h.drain(1)

	score, ok = findByType(drawerMsgs, protocol.MSG_SCORE)
	assert.True(t, ok)
	n, _ = score.ParseInt()
	assert.Equal(t, 45, n)

	// 其余玩家收到猜中通告，但没有分数单播
	otherMsgs := h.drain(3)

	notice, ok = findByType(otherMsgs, protocol.MSG_CHAT)
	assert.True(t, ok)
	assert.Equal(t, "SERVER:bob guessed the word!", notice.Contents)

	_, ok = findByType(otherMsgs, protocol.MSG_SCORE)
	assert.False(t, ok)

	// 还有一名猜词方未猜中，回合继续
	assert.Equal(t, STAGE_DRAWING, h.gm.ctx.GameStage)
}

func TestMachine_AllGuessedEndsRoundImmediately(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)
	startDrawing(h)

	h.frame(2, protocol.NewGuessMessage("bob", "Giraffe"))
	assert.Equal(t, STAGE_DRAWING, h.gm.ctx.GameStage)

	h.frame(3, protocol.NewGuessMessage("carol", "giraffe"))
	assert.Equal(t, STAGE_INTERMISSION, h.gm.ctx.GameStage)

	msgs := h.drain(2)

	found := false
	for _, msg := range msgs {
		if msg.Type == protocol.MSG_CHAT &&
			msg.Contents == "SERVER:Everyone guessed correctly! Word was: Giraffe" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMachine_GuessedPlayerChatStaysAmongGuessers(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)
	startDrawing(h)

	h.frame(2, protocol.NewGuessMessage("bob", "Giraffe"))

	for id := 1; id <= 3; id++ {
		h.drain(id)
	}

	// 已猜中者的发言只回显给画手和其他已猜中者
	h.frame(2, protocol.NewGuessMessage("bob", "that was easy"))

	_, ok := findByType(h.drain(1), protocol.MSG_CHAT)
	assert.True(t, ok)

	assert.Empty(t, h.drain(3))
}

func TestMachine_DrawForwardedToOthersOnly(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)
	startDrawing(h)

	h.frame(1, protocol.NewDrawMessage(10, 20, "#000000", 2))

	assert.Equal(t, 1, countByType(h.drain(2), protocol.MSG_DRAW))
	assert.Equal(t, 1, countByType(h.drain(3), protocol.MSG_DRAW))
	assert.Equal(t, 0, countByType(h.drain(1), protocol.MSG_DRAW))

	// 非画手的绘画被拒绝
	h.frame(2, protocol.NewDrawMessage(30, 40, "#ffffff", 2))

	assert.Equal(t, 0, countByType(h.drain(3), protocol.MSG_DRAW))
}

func TestMachine_TimeUpEndsRound(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)
	startDrawing(h)

	h.now = h.now.Add(61 * time.Second)
	h.tick()

	assert.Equal(t, STAGE_INTERMISSION, h.gm.ctx.GameStage)

	msgs := h.drain(3)

	found := false
	for _, msg := range msgs {
		if msg.Type == protocol.MSG_CHAT &&
			msg.Contents == "SERVER:Time is up! Word was: Giraffe" {
			found = true
		}
	}
	assert.True(t, found)

	_, ok := findByType(msgs, protocol.MSG_LEADERBOARD)
	assert.True(t, ok)
}

func TestMachine_FinalRoundEndsGame(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)

	// 直接把比赛放到最后一轮
	h.gm.ctx.Match.currentRound = MAX_ROUNDS - 1

	startDrawing(h)

	h.frame(2, protocol.NewGuessMessage("bob", "Giraffe"))
	h.frame(3, protocol.NewGuessMessage("carol", "Giraffe"))

	assert.Equal(t, STAGE_GAME_OVER, h.gm.ctx.GameStage)

	gameOver, ok := findByType(h.drain(1), protocol.MSG_GAME_OVER)
	assert.True(t, ok)
	assert.NotEmpty(t, gameOver.Contents)
}

func TestMachine_LeaderDisconnectPromotesLowestID(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)

	h.disconnect(1)

	assert.Equal(t, 2, h.gm.ctx.LeaderID)

	_, ok := findByType(h.drain(2), protocol.MSG_LEADER)
	assert.True(t, ok)

	_, ok = findByType(h.drain(3), protocol.MSG_LEADER)
	assert.False(t, ok)
}

func TestMachine_DrawerDisconnectDuringPickingReassigns(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)

	h.frame(1, protocol.NewStartGameMessage())
	h.drain(2)

	h.disconnect(1)
	h.tick()

	assert.Equal(t, STAGE_PICKING, h.gm.ctx.GameStage)
	assert.Equal(t, 2, h.gm.ctx.Match.CurrentDrawerID())

	// 轮数不因重新选人而增加
	assert.Equal(t, 1, h.gm.ctx.Match.CurrentRound())

	_, ok := findByType(h.drain(2), protocol.MSG_WORD_OPTIONS)
	assert.True(t, ok)
}

func TestMachine_LastPlayerLeavingReturnsToLobby(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)

	h.frame(1, protocol.NewStartGameMessage())

	h.disconnect(1)
	h.disconnect(2)
	h.disconnect(3)

	h.tick()

	assert.Equal(t, STAGE_WAITING, h.gm.ctx.GameStage)
	assert.False(t, h.gm.ctx.GameStarted)
}

func TestMachine_MidRoundJoinerGetsHint(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)
	startDrawing(h)

	h.now = h.now.Add(10 * time.Second)

	h.connect(4)
	h.drain(4)

	h.frame(4, protocol.NewUsernameMessage("dave"))

	start, ok := findByType(h.drain(4), protocol.MSG_ROUND_START)
	assert.True(t, ok)

	data, err := start.ParseRoundStart()
	assert.NoError(t, err)
	assert.Equal(t, "_ _ _ _ _ _ _", data.Word)
	assert.Equal(t, 50, data.Duration)
}

func TestMachine_GameOverResetReturnsToLobby(t *testing.T) {
	h := newMachineHarness(t)
	setupLobby(h)

	h.gm.ctx.Match.currentRound = MAX_ROUNDS - 1

	startDrawing(h)

	h.frame(2, protocol.NewGuessMessage("bob", "Giraffe"))
	h.frame(3, protocol.NewGuessMessage("carol", "Giraffe"))
	assert.Equal(t, STAGE_GAME_OVER, h.gm.ctx.GameStage)

	for id := 1; id <= 3; id++ {
		h.drain(id)
	}

	// 结算展示超时后回到大厅
	h.dispatch(RequestWrapper{Timeout: &TimeoutRequest{Stage: STAGE_GAME_OVER}})

	assert.Equal(t, STAGE_WAITING, h.gm.ctx.GameStage)
	assert.False(t, h.gm.ctx.GameStarted)
	assert.Equal(t, 0, h.gm.ctx.Match.CurrentRound())
	assert.Equal(t, 0, h.gm.ctx.Match.PlayerScore(2))

	msgs := h.drain(2)

	score, ok := findByType(msgs, protocol.MSG_SCORE)
	assert.True(t, ok)
	n, _ := score.ParseInt()
	assert.Equal(t, 0, n)

	// 队长保留，重新单播授权
	_, ok = findByType(h.drain(1), protocol.MSG_LEADER)
	assert.True(t, ok)
}
