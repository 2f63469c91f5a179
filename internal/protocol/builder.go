package protocol

import (
	"strconv"
	"strings"
)

// 服务器侧常用消息的构造函数

func NewConnectedMessage(clientID int) Message {
	return Message{Type: MSG_CONNECTED, Contents: strconv.Itoa(clientID)}
}

func NewChatMessage(username, text string) Message {
	return Message{Type: MSG_CHAT, Contents: username + ":" + text}
}

func NewDrawMessage(x, y float64, color string, size float64) Message {
	contents := strconv.FormatFloat(x, 'f', -1, 64) + "," +
		strconv.FormatFloat(y, 'f', -1, 64) + "," +
		color + "," +
		strconv.FormatFloat(size, 'f', -1, 64)

	return Message{Type: MSG_DRAW, Contents: contents}
}

func NewGuessMessage(username, guess string) Message {
	return Message{Type: MSG_GUESS, Contents: username + ":" + guess}
}

func NewClearMessage() Message {
	return Message{Type: MSG_CLEAR}
}

func NewRoundStartMessage(word string, durationSeconds int) Message {
	return Message{
		Type:     MSG_ROUND_START,
		Contents: word + ":" + strconv.Itoa(durationSeconds),
	}
}

func NewRoundUpdateMessage(round int) Message {
	return Message{Type: MSG_ROUND_UPDATE, Contents: strconv.Itoa(round)}
}

func NewTerminateMessage() Message {
	return Message{Type: MSG_TERMINATE}
}

func NewDrawerAssignedMessage() Message {
	return Message{Type: MSG_DRAWER_ASSIGNED}
}

func NewUsernameMessage(username string) Message {
	return Message{Type: MSG_USERNAME, Contents: username}
}

func NewStartGameMessage() Message {
	return Message{Type: MSG_START_GAME}
}

func NewLeaderMessage() Message {
	return Message{Type: MSG_LEADER}
}

func NewWordOptionsMessage(words []string) Message {
	return Message{Type: MSG_WORD_OPTIONS, Contents: strings.Join(words, ",")}
}

func NewWordSelectedMessage(word string) Message {
	return Message{Type: MSG_WORD_SELECTED, Contents: word}
}

func NewLeaderboardMessage(leaderboard string) Message {
	return Message{Type: MSG_LEADERBOARD, Contents: leaderboard}
}

func NewScoreMessage(score int) Message {
	return Message{Type: MSG_SCORE, Contents: strconv.Itoa(score)}
}

func NewGameOverMessage(leaderboard string) Message {
	return Message{Type: MSG_GAME_OVER, Contents: leaderboard}
}
