package game

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nomiwang10/InkRush/internal/protocol"
	"github.com/nomiwang10/InkRush/internal/service/dto"
)

// StageHandler 是单个游戏阶段的处理器
// OnTick 由状态机的秒级心跳驱动，用于检测时间耗尽和全员猜中
type StageHandler interface {
	Stage() string

	OnEnter(ctx *GameContext)
	OnHandle(ctx *GameContext, req RequestWrapper) error
	OnTick(ctx *GameContext)
	OnExit(ctx *GameContext)

	SetOnSwitch(func(nextStage string))
}

// GameMachine 是游戏状态机，独占会话状态并串行处理所有事件
// 连接协程和 HTTP 查询只通过请求通道与它交互
type GameMachine struct {
	ctx     *GameContext
	handler StageHandler
	// 所有连接的请求汇总的通道
	reqCh chan RequestWrapper
	// 结束通道，用于通知状态机退出事件循环
	doneCh chan struct{}

	createdAt time.Time
}

func NewGameMachine(sessionID string, words WordSupplier, doneCh chan struct{}) *GameMachine {
	ctx := &GameContext{
		SessionID: sessionID,
		GameStage: STAGE_WAITING,
		Match:     NewMatch(words),
		Conns:     make(map[int]chan protocol.Message),
		LeaderID:  -1,
		TmoCh:     make(chan RequestWrapper, 64),
	}

	gm := &GameMachine{
		ctx:       ctx,
		handler:   NewWaitStageHandler(),
		reqCh:     make(chan RequestWrapper, 64),
		doneCh:    doneCh,
		createdAt: time.Now(),
	}

	gm.handler.SetOnSwitch(func(nextStage string) {
		gm.ctx.GameStage = nextStage
	})

	return gm
}

func (gm *GameMachine) GetReqCh() chan RequestWrapper {
	return gm.reqCh
}

func (gm *GameMachine) CreatedAt() time.Time {
	return gm.createdAt
}

// Start 运行事件循环，直到收到退出信号
func (gm *GameMachine) Start() {
	gm.handler.OnEnter(gm.ctx)
	gm.syncStage()

	// 回合计时的秒级心跳
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		var req RequestWrapper

		select {
		case req = <-gm.reqCh:
			zap.L().Debug(
				"接收到客户端请求",
				zap.String("session_id", gm.ctx.SessionID),
				zap.Any("request", req),
			)

		case req = <-gm.ctx.TmoCh:
			zap.L().Debug(
				"接收到超时事件",
				zap.String("session_id", gm.ctx.SessionID),
			)

		case <-ticker.C:
			gm.handler.OnTick(gm.ctx)
			gm.syncStage()
			continue

		case <-gm.doneCh:
			zap.L().Info(
				"收到退出信号，结束游戏状态机",
				zap.String("session_id", gm.ctx.SessionID),
			)
			return
		}

		if req.Done != nil {
			zap.L().Info(
				"收到关闭指令，结束游戏状态机",
				zap.String("session_id", gm.ctx.SessionID),
			)
			return
		}

		// 连接管理和快照查询与具体阶段无关，在这里统一处理
		if gm.handleSessionEvent(req) {
			continue
		}

		if err := gm.handler.OnHandle(gm.ctx, req); err != nil {
			zap.L().Debug(
				"处理请求失败",
				zap.Error(err),
				zap.String("stage", gm.handler.Stage()),
				zap.Any("request", req),
			)
		}

		gm.syncStage()
	}
}

// syncStage 检查处理器是否请求了阶段切换并执行
func (gm *GameMachine) syncStage() {
	for gm.ctx.GameStage != gm.handler.Stage() {
		gm.handler.OnExit(gm.ctx)

		var newHandler StageHandler

		switch gm.ctx.GameStage {
		case STAGE_WAITING:
			newHandler = NewWaitStageHandler()
		case STAGE_PICKING:
			newHandler = NewPickStageHandler()
		case STAGE_DRAWING:
			newHandler = NewDrawStageHandler()
		case STAGE_INTERMISSION:
			newHandler = NewIntermissionStageHandler()
		case STAGE_GAME_OVER:
			newHandler = NewGameOverStageHandler()
		default:
			zap.L().Error(
				"未知的游戏阶段",
				zap.String("stage", gm.ctx.GameStage),
			)
			return
		}

		newHandler.SetOnSwitch(func(nextStage string) {
			gm.ctx.GameStage = nextStage
		})

		gm.handler = newHandler

		zap.L().Info(
			"切换游戏阶段",
			zap.String("session_id", gm.ctx.SessionID),
			zap.String("stage", gm.ctx.GameStage),
		)

		// OnEnter 自己也可能立刻请求下一次切换
		gm.handler.OnEnter(gm.ctx)
	}
}

// handleSessionEvent 处理与阶段无关的事件，返回是否已消费
func (gm *GameMachine) handleSessionEvent(req RequestWrapper) bool {
	ctx := gm.ctx

	switch {
	case req.Connect != nil:
		ctx.Conns[req.Connect.ClientID] = req.Connect.SendCh

		// 连接确认，携带分配到的 ID
		ctx.Unicast(req.Connect.ClientID, protocol.NewConnectedMessage(req.Connect.ClientID))

		// 第一个成功接入的连接成为队长
		if ctx.LeaderID == -1 {
			ctx.LeaderID = req.Connect.ClientID
			ctx.Unicast(ctx.LeaderID, protocol.NewLeaderMessage())

			zap.L().Info(
				"指定队长",
				zap.String("session_id", ctx.SessionID),
				zap.Int("client_id", ctx.LeaderID),
			)
		}

		return true

	case req.Disconnect != nil:
		gm.onDisconnect(req.Disconnect.ClientID)
		return true

	case req.Snapshot != nil:
		req.Snapshot.ReplyCh <- gm.snapshot()
		return true
	}

	return false
}

func (gm *GameMachine) onDisconnect(clientID int) {
	ctx := gm.ctx

	delete(ctx.Conns, clientID)
	ctx.Match.RemovePlayer(clientID)

	zap.L().Info(
		"客户端断开",
		zap.String("session_id", ctx.SessionID),
		zap.Int("client_id", clientID),
	)

	if clientID != ctx.LeaderID {
		return
	}

	// 队长掉线：按 ID 升序找存活连接中最小的接任
	ctx.LeaderID = -1

	liveIDs := make([]int, 0, len(ctx.Conns))
	for id := range ctx.Conns {
		liveIDs = append(liveIDs, id)
	}

	sort.Ints(liveIDs)

	if len(liveIDs) > 0 {
		ctx.LeaderID = liveIDs[0]
		ctx.Unicast(ctx.LeaderID, protocol.NewLeaderMessage())

		zap.L().Info(
			"队长掉线，指定新队长",
			zap.String("session_id", ctx.SessionID),
			zap.Int("client_id", ctx.LeaderID),
		)
	} else {
		zap.L().Info(
			"没有剩余连接，清空队长",
			zap.String("session_id", ctx.SessionID),
		)
	}
}

func (gm *GameMachine) snapshot() dto.SessionSnapshot {
	ctx := gm.ctx

	board := ctx.Match.Leaderboard()
	players := make([]dto.PlayerInfo, 0, len(board))

	for _, p := range board {
		players = append(players, dto.PlayerInfo{
			ID:    p.ID,
			Name:  p.Name,
			Score: p.Score,
		})
	}

	return dto.SessionSnapshot{
		SessionID:     ctx.SessionID,
		Stage:         ctx.GameStage,
		Round:         ctx.Match.CurrentRound(),
		MaxRounds:     MAX_ROUNDS,
		LeaderID:      ctx.LeaderID,
		DrawerID:      ctx.Match.CurrentDrawerID(),
		TimeRemaining: ctx.Match.TimeRemaining(),
		GameStarted:   ctx.GameStarted,
		Players:       players,
	}
}
