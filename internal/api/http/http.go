package http

import (
	"fmt"

	"github.com/kataras/iris/v12"

	"github.com/nomiwang10/InkRush/internal/api/http/websocket"
	"github.com/nomiwang10/InkRush/internal/state"
)

func RunServer(appState *state.AppState) {
	app := iris.Default()

	app.HandleDir(
		"/",
		iris.Dir("./inkrush-fe"),
		iris.DirOptions{
			IndexName: "index.html",
			SPA:       true,
			Compress:  true,
		},
	)

	api := app.Party("/api/v1")

	api.Get("/session", GetSession(appState))

	api.Get("/ws/join", websocket.JoinGame(appState))

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	app.Listen(addr)
}
