package protocol

import (
	"errors"
	"strconv"
	"strings"
)

// 客户端与服务器之间传输的消息类型
// 线上格式为 "TYPE" 或 "TYPE:payload"，一条 WebSocket 文本帧即一条消息
const (
	MSG_CONNECTED       = "CONNECTED"
	MSG_CHAT            = "CHAT"
	MSG_DRAW            = "DRAW"
	MSG_GUESS           = "GUESS"
	MSG_CLEAR           = "CLEAR"
	MSG_ROUND_START     = "ROUND_START"
	MSG_ROUND_END       = "ROUND_END"
	MSG_ROUND_UPDATE    = "ROUND_UPDATE"
	MSG_TERMINATE       = "TERMINATE"
	MSG_DRAWER_ASSIGNED = "DRAWER_ASSIGNED"
	MSG_USERNAME        = "USERNAME"
	MSG_START_GAME      = "START_GAME"
	MSG_LEADER          = "LEADER"
	MSG_WORD_OPTIONS    = "WORD_OPTIONS"
	MSG_WORD_SELECTED   = "WORD_SELECTED"
	MSG_LEADERBOARD     = "LEADERBOARD"
	MSG_SCORE           = "SCORE"
	MSG_GAME_OVER       = "GAME_OVER"
)

// Message 是一条协议消息，构造后不可变
// Contents 的内部结构由 Type 决定，用下面的 ParseXxx 系列方法解析
type Message struct {
	Type     string
	Contents string
}

func NewMessage(msgType, contents string) Message {
	return Message{Type: msgType, Contents: contents}
}

// Encode 把消息编码为线上帧
// payload 为空时只输出裸类型
func (m Message) Encode() string {
	if m.Contents == "" {
		return m.Type
	}

	return m.Type + ":" + m.Contents
}

// Decode 把线上帧解析为消息
// 按第一个冒号切分；没有冒号的帧是裸类型；空帧返回 false 表示没有消息
func Decode(frame string) (Message, bool) {
	if frame == "" {
		return Message{}, false
	}

	idx := strings.IndexByte(frame, ':')
	if idx < 0 {
		return Message{Type: frame}, true
	}

	return Message{
		Type:     frame[:idx],
		Contents: frame[idx+1:],
	}, true
}

// DrawData 是一个画笔点，payload 格式为 "x,y,color,size"
type DrawData struct {
	X     float64
	Y     float64
	Color string
	Size  float64
}

// GuessData 的 payload 格式为 "username:word"
// 只按第一个冒号切分，word 本身可以含有冒号
type GuessData struct {
	Username string
	Guess    string
}

type ChatData struct {
	Username string
	Message  string
}

// RoundStartData 的 payload 格式为 "word_or_hint:duration"
type RoundStartData struct {
	Word     string
	Duration int
}

func (m Message) ParseDraw() (DrawData, error) {
	if m.Type != MSG_DRAW {
		return DrawData{}, errors.New("message is not DRAW")
	}

	parts := strings.Split(m.Contents, ",")
	if len(parts) < 4 {
		return DrawData{}, errors.New("invalid DRAW payload")
	}

	x, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return DrawData{}, errors.New("invalid DRAW x coordinate")
	}

	y, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return DrawData{}, errors.New("invalid DRAW y coordinate")
	}

	size, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return DrawData{}, errors.New("invalid DRAW brush size")
	}

	return DrawData{X: x, Y: y, Color: parts[2], Size: size}, nil
}

func (m Message) ParseGuess() (GuessData, error) {
	if m.Type != MSG_GUESS {
		return GuessData{}, errors.New("message is not GUESS")
	}

	idx := strings.IndexByte(m.Contents, ':')
	if idx < 0 {
		return GuessData{}, errors.New("invalid GUESS payload")
	}

	return GuessData{
		Username: m.Contents[:idx],
		Guess:    m.Contents[idx+1:],
	}, nil
}

func (m Message) ParseChat() (ChatData, error) {
	if m.Type != MSG_CHAT {
		return ChatData{}, errors.New("message is not CHAT")
	}

	idx := strings.IndexByte(m.Contents, ':')
	if idx < 0 {
		return ChatData{}, errors.New("invalid CHAT payload")
	}

	return ChatData{
		Username: m.Contents[:idx],
		Message:  m.Contents[idx+1:],
	}, nil
}

func (m Message) ParseConnected() (int, error) {
	if m.Type != MSG_CONNECTED {
		return 0, errors.New("message is not CONNECTED")
	}

	id, err := strconv.Atoi(m.Contents)
	if err != nil {
		return 0, errors.New("invalid CONNECTED client id")
	}

	return id, nil
}

func (m Message) ParseRoundStart() (RoundStartData, error) {
	if m.Type != MSG_ROUND_START {
		return RoundStartData{}, errors.New("message is not ROUND_START")
	}

	// 提示词里只有字母、下划线和空格，不会含有冒号
	idx := strings.IndexByte(m.Contents, ':')
	if idx < 0 {
		return RoundStartData{}, errors.New("invalid ROUND_START payload")
	}

	duration, err := strconv.Atoi(m.Contents[idx+1:])
	if err != nil {
		return RoundStartData{}, errors.New("invalid ROUND_START duration")
	}

	return RoundStartData{
		Word:     m.Contents[:idx],
		Duration: duration,
	}, nil
}

// ParseInt 解析 ROUND_UPDATE 或 SCORE 这类裸整数 payload
func (m Message) ParseInt() (int, error) {
	n, err := strconv.Atoi(m.Contents)
	if err != nil {
		return 0, errors.New("invalid integer payload")
	}

	return n, nil
}
