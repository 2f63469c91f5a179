package http

import (
	"github.com/kataras/iris/v12"

	"github.com/nomiwang10/InkRush/internal/state"
)

// GetSession 返回当前会话的快照，用于前端大厅展示
func GetSession(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		snap, ok := appState.SessionSvc.Snapshot()
		if !ok {
			ctx.StatusCode(iris.StatusServiceUnavailable)
			ctx.JSON(iris.Map{
				"error": "会话暂时不可用",
			})
			return
		}

		ctx.JSON(snap)
	}
}
