package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ActiveExamByPINKey returns the cache key for the active exam resolved from a PIN.
func (r *CacheKeyStruct) ActiveExamByPINKey(pin string) string {
	return fmt.Sprintf("exam:pin:%s:active", pin)
}

// ParticipantSessionKey returns the cache key holding a participant's current token ID.
func (r *CacheKeyStruct) ParticipantSessionKey(participantID int) string {
	return fmt.Sprintf("login:participant:%d", participantID)
}

var CacheKey = NewCacheKeyStruct()
