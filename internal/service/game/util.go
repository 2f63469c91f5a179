package game

import (
	"github.com/google/uuid"
)

// GenID 生成一个会话标识
func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}
