package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncode_WithPayload(t *testing.T) {
	msg := NewMessage(MSG_CHAT, "alice:hello")
	assert.Equal(t, "CHAT:alice:hello", msg.Encode())
}

func TestEncode_BareType(t *testing.T) {
	msg := NewMessage(MSG_CLEAR, "")
	assert.Equal(t, "CLEAR", msg.Encode())
}

func TestDecode_SplitsOnFirstColon(t *testing.T) {
	msg, ok := Decode("CHAT:alice:hi: there")

	assert.True(t, ok)
	assert.Equal(t, MSG_CHAT, msg.Type)
	assert.Equal(t, "alice:hi: there", msg.Contents)
}

func TestDecode_BareType(t *testing.T) {
	msg, ok := Decode("START_GAME")

	assert.True(t, ok)
	assert.Equal(t, MSG_START_GAME, msg.Type)
	assert.Equal(t, "", msg.Contents)
}

func TestDecode_EmptyFrame(t *testing.T) {
	_, ok := Decode("")
	assert.False(t, ok)
}

func TestDecode_EncodeRoundTrip(t *testing.T) {
	original := NewGuessMessage("bob", "alarm clock")

	decoded, ok := Decode(original.Encode())

	assert.True(t, ok)
	assert.Equal(t, original, decoded)
}

func TestParseDraw(t *testing.T) {
	msg, _ := Decode("DRAW:12.5,40,#ff0000,3")

	data, err := msg.ParseDraw()

	assert.NoError(t, err)
	assert.Equal(t, 12.5, data.X)
	assert.Equal(t, 40.0, data.Y)
	assert.Equal(t, "#ff0000", data.Color)
	assert.Equal(t, 3.0, data.Size)
}

func TestParseDraw_MissingFields(t *testing.T) {
	msg, _ := Decode("DRAW:12.5,40")

	_, err := msg.ParseDraw()
	assert.Error(t, err)
}

func TestParseDraw_BadCoordinate(t *testing.T) {
	msg, _ := Decode("DRAW:abc,40,#ff0000,3")

	_, err := msg.ParseDraw()
	assert.Error(t, err)
}

func TestParseGuess(t *testing.T) {
	msg, _ := Decode("GUESS:alice:Giraffe")

	data, err := msg.ParseGuess()

	assert.NoError(t, err)
	assert.Equal(t, "alice", data.Username)
	assert.Equal(t, "Giraffe", data.Guess)
}

func TestParseGuess_GuessMayContainColon(t *testing.T) {
	msg, _ := Decode("GUESS:alice:12:30")

	data, err := msg.ParseGuess()

	assert.NoError(t, err)
	assert.Equal(t, "12:30", data.Guess)
}

func TestParseGuess_MissingSeparator(t *testing.T) {
	msg, _ := Decode("GUESS:justoneword")

	_, err := msg.ParseGuess()
	assert.Error(t, err)
}

func TestParseChat(t *testing.T) {
	msg, _ := Decode("CHAT:bob:good morning")

	data, err := msg.ParseChat()

	assert.NoError(t, err)
	assert.Equal(t, "bob", data.Username)
	assert.Equal(t, "good morning", data.Message)
}

func TestParseConnected(t *testing.T) {
	msg := NewConnectedMessage(7)

	id, err := msg.ParseConnected()

	assert.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestParseRoundStart(t *testing.T) {
	msg := NewRoundStartMessage("_ _ _ _ _   _ _ _ _ _", 60)

	data, err := msg.ParseRoundStart()

	assert.NoError(t, err)
	assert.Equal(t, "_ _ _ _ _   _ _ _ _ _", data.Word)
	assert.Equal(t, 60, data.Duration)
}

func TestParseInt(t *testing.T) {
	msg := NewScoreMessage(42)

	n, err := msg.ParseInt()

	assert.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestNewWordOptionsMessage(t *testing.T) {
	msg := NewWordOptionsMessage([]string{"Giraffe", "Pizza", "Umbrella"})
	assert.Equal(t, "WORD_OPTIONS:Giraffe,Pizza,Umbrella", msg.Encode())
}
