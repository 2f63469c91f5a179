package game

import (
	"time"

	"go.uber.org/zap"

	"github.com/nomiwang10/InkRush/internal/protocol"
)

// GameContext 是状态机协程独占的会话上下文
// Conns 是连接注册表：连接建立即存在；Match 里的玩家要等 USERNAME 帧才出现
type GameContext struct {
	SessionID string
	GameStage string

	Match *Match

	Conns map[int]chan protocol.Message

	LeaderID    int
	GameStarted bool

	// 阶段超时事件汇入的通道
	TmoCh chan RequestWrapper
	timer *time.Timer
}

// Unicast 向单个连接发送消息
// 通道已满时丢帧并告警，绝不阻塞状态机
func (gc *GameContext) Unicast(clientID int, msg protocol.Message) {
	sendCh, ok := gc.Conns[clientID]
	if !ok {
		zap.L().Warn(
			"无法找到连接进行单播",
			zap.Int("client_id", clientID),
			zap.String("type", msg.Type),
		)
		return
	}

	select {
	case sendCh <- msg:
	default:
		zap.L().Warn(
			"发送单播消息失败：连接发送通道已满",
			zap.Int("client_id", clientID),
			zap.String("type", msg.Type),
		)
	}
}

// Broadcast 向所有连接发送消息
func (gc *GameContext) Broadcast(msg protocol.Message) {
	for clientID := range gc.Conns {
		gc.Unicast(clientID, msg)
	}
}

// BroadcastExcept 向除 exceptID 外的所有连接发送消息
// 用于把画笔数据转发给猜词方
func (gc *GameContext) BroadcastExcept(msg protocol.Message, exceptID int) {
	for clientID := range gc.Conns {
		if clientID != exceptID {
			gc.Unicast(clientID, msg)
		}
	}
}

// BroadcastToGuessers 只发给画手和本轮已经猜中的玩家
// 用于防止已猜中者在聊天里泄露谜底
func (gc *GameContext) BroadcastToGuessers(msg protocol.Message) {
	drawerID := gc.Match.CurrentDrawerID()

	for clientID := range gc.Conns {
		if clientID == drawerID || gc.Match.HasGuessedCorrectly(clientID) {
			gc.Unicast(clientID, msg)
		}
	}
}

// SetTimeout 为当前阶段安排一次超时事件
// 事件携带设置时的阶段名，阶段切换后迟到的超时会被丢弃
func (gc *GameContext) SetTimeout(d time.Duration) {
	gc.ClearTimeout()

	stage := gc.GameStage

	gc.timer = time.AfterFunc(d, func() {
		select {
		case gc.TmoCh <- RequestWrapper{Timeout: &TimeoutRequest{Stage: stage}}:
		default:
			zap.L().Warn(
				"超时事件投递失败：通道已满",
				zap.String("stage", stage),
			)
		}
	})
}

func (gc *GameContext) ClearTimeout() {
	if gc.timer != nil {
		gc.timer.Stop()
		gc.timer = nil
	}
}
