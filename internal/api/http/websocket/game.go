package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/nomiwang10/InkRush/internal/protocol"
	"github.com/nomiwang10/InkRush/internal/service"
	"github.com/nomiwang10/InkRush/internal/service/game"
	"github.com/nomiwang10/InkRush/internal/state"
)

func JoinGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		clientIP := ctx.RemoteAddr()

		sendCh := make(chan protocol.Message, service.SEND_BUFFER_SIZE)

		// 先接入会话，拿到连接 ID 和状态机的请求通道
		// CONNECTED 回执由状态机通过 sendCh 下发
		clientID, reqCh, err := appState.SessionSvc.Connect(sendCh)
		if err != nil {
			zap.L().Warn(
				"接入会话失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)

			conn.WriteMessage(
				websocket.TextMessage,
				[]byte(protocol.NewTerminateMessage().Encode()),
			)

			return
		}

		// 写协程的退出信号
		writeDoneCh := make(chan struct{})
		defer close(writeDoneCh)

		// 写入协程：心跳加消息下发，单协程独占连接的写端
		go func() {
			ticker := time.NewTicker(HEARTBEAT_INTERVAL)
			defer ticker.Stop()

			for {
				select {
				case <-writeDoneCh:
					zap.L().Info(
						"WebSocket写入协程退出",
						zap.String("client_ip", clientIP),
						zap.Int("client_id", clientID),
					)
					return

				case <-ticker.C:
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						zap.L().Error(
							"发送心跳失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

				case msg := <-sendCh:
					frame := msg.Encode()

					if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
						zap.L().Error(
							"发送消息失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

					zap.L().Debug(
						"发送消息",
						zap.String("client_ip", clientIP),
						zap.String("frame", frame),
					)
				}
			}
		}()

		// 读取协程（主协程）
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					zap.L().Error(
						"读取消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}

				break
			}

			msg, ok := protocol.Decode(string(raw))
			if !ok {
				// 空帧没有语义，直接忽略
				continue
			}

			// TERMINATE 表示客户端主动离开
			if msg.Type == protocol.MSG_TERMINATE {
				zap.L().Info(
					"客户端请求离开",
					zap.String("client_ip", clientIP),
					zap.Int("client_id", clientID),
				)

				break
			}

			// 将解析后的帧投递给游戏状态机
			select {
			case reqCh <- game.RequestWrapper{
				Frame: &game.FrameRequest{
					ClientID: clientID,
					Msg:      msg,
				},
			}:
			default:
				zap.L().Error(
					"发送请求到游戏状态机失败：请求通道已满",
					zap.String("client_ip", clientIP),
					zap.Int("client_id", clientID),
				)
			}
		}

		// 读循环退出，表示客户端断开连接，通知状态机清理玩家
		appState.SessionSvc.Disconnect(clientID)

		zap.L().Info(
			"WebSocket连接处理完成",
			zap.String("client_ip", clientIP),
			zap.Int("client_id", clientID),
		)
	}
}
