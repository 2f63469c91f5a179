package game

import (
	"github.com/nomiwang10/InkRush/internal/protocol"
	"github.com/nomiwang10/InkRush/internal/service/dto"
)

// 连接协程发给状态机的事件，同一时刻只有一个指针字段非空

// ConnectRequest 在连接建立后发出，携带该连接的发送通道
type ConnectRequest struct {
	ClientID int
	SendCh   chan protocol.Message
}

// DisconnectRequest 在读循环退出（对端断开或 TERMINATE）后发出
type DisconnectRequest struct {
	ClientID int
}

// FrameRequest 是一条已解码的协议帧
type FrameRequest struct {
	ClientID int
	Msg      protocol.Message
}

// TimeoutRequest 由阶段定时器发出，Stage 用于丢弃迟到的超时
type TimeoutRequest struct {
	Stage string
}

// SnapshotRequest 请求一份会话快照（HTTP 查询接口使用）
type SnapshotRequest struct {
	ReplyCh chan dto.SessionSnapshot
}

type RequestWrapper struct {
	Connect    *ConnectRequest
	Disconnect *DisconnectRequest
	Frame      *FrameRequest
	Timeout    *TimeoutRequest
	Snapshot   *SnapshotRequest
	Done       *struct{}
}
