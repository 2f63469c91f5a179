package service

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nomiwang10/InkRush/internal/protocol"
	"github.com/nomiwang10/InkRush/internal/service/dto"
	"github.com/nomiwang10/InkRush/internal/service/game"
)

// 每个连接的发送通道容量
// 排行榜广播和单播回执可能在同一事件里连发多帧，给足余量
const SEND_BUFFER_SIZE = 64

// SessionService 管理本次服务进程唯一的一场比赛会话：
// 容量门禁、连接 ID 单调分配、状态机的生命周期
type SessionService struct {
	maxClients int

	state *sessionServiceState

	machine *game.GameMachine
	doneCh  chan struct{}
}

type sessionServiceState struct {
	mu sync.Mutex

	// 连接 ID 只增不复用
	counter int
	active  map[int]struct{}
}

func NewSessionService(maxClients int, words game.WordSupplier) *SessionService {
	sessionID := game.GenID()
	// 日志里用短 ID
	sessionID = sessionID[len(sessionID)-8:]

	doneCh := make(chan struct{})
	machine := game.NewGameMachine(sessionID, words, doneCh)

	// 状态机协程独占比赛状态，服务退出前一直运行
	go machine.Start()

	zap.S().Infof("会话 %s 已创建，容量 %d", sessionID, maxClients)

	return &SessionService{
		maxClients: maxClients,
		state: &sessionServiceState{
			active: make(map[int]struct{}),
		},
		machine: machine,
		doneCh:  doneCh,
	}
}

func (ss *SessionService) Close() {
	close(ss.doneCh)
}

// Connect 接入一个新连接：容量校验、分配 ID、向状态机注册发送通道
// 返回分配到的连接 ID 和投递后续帧用的请求通道
func (ss *SessionService) Connect(sendCh chan protocol.Message) (int, chan<- game.RequestWrapper, error) {
	ss.state.mu.Lock()

	if len(ss.state.active) >= ss.maxClients {
		ss.state.mu.Unlock()

		zap.S().Warnf("连接被拒绝：已达容量上限 %d", ss.maxClients)

		return 0, nil, errors.New("会话已满")
	}

	ss.state.counter++
	clientID := ss.state.counter
	ss.state.active[clientID] = struct{}{}

	ss.state.mu.Unlock()

	reqCh := ss.machine.GetReqCh()

	// 注册事件带上发送通道，CONNECTED 回执和队长指派由状态机下发
	reqCh <- game.RequestWrapper{
		Connect: &game.ConnectRequest{
			ClientID: clientID,
			SendCh:   sendCh,
		},
	}

	zap.S().Infof("客户端 %d 接入", clientID)

	return clientID, reqCh, nil
}

// Disconnect 在连接的读循环退出后调用，触发玩家注销和队长改选
func (ss *SessionService) Disconnect(clientID int) {
	ss.state.mu.Lock()
	delete(ss.state.active, clientID)
	ss.state.mu.Unlock()

	ss.machine.GetReqCh() <- game.RequestWrapper{
		Disconnect: &game.DisconnectRequest{ClientID: clientID},
	}

	zap.S().Infof("客户端 %d 断开", clientID)
}

// Snapshot 向状态机请求一份会话快照，超时返回 false
func (ss *SessionService) Snapshot() (dto.SessionSnapshot, bool) {
	replyCh := make(chan dto.SessionSnapshot, 1)

	reqTimer := time.NewTimer(3 * time.Second)
	defer reqTimer.Stop()

	select {
	case ss.machine.GetReqCh() <- game.RequestWrapper{
		Snapshot: &game.SnapshotRequest{ReplyCh: replyCh},
	}:
	case <-reqTimer.C:
		zap.S().Warn("快照请求发送超时")
		return dto.SessionSnapshot{}, false
	}

	resTimer := time.NewTimer(3 * time.Second)
	defer resTimer.Stop()

	select {
	case snap := <-replyCh:
		return snap, true
	case <-resTimer.C:
		zap.S().Warn("快照响应超时")
		return dto.SessionSnapshot{}, false
	}
}
