package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%d"
	JobKeyPrefix     = "job:%d"
	ChatPeersPrefix  = "chat:peers:%d"
	ResetTokenPrefix = "pwreset:%s"
	TokenDenyPrefix  = "jwt:denylist:%s"
)

const (
	UserTTL      = 5 * time.Minute
	JobTTL       = 10 * time.Minute
	ChatPeersTTL = 30 * time.Second
	ResetTTL     = 15 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func JobKey(jobID uint) string {
	return fmt.Sprintf(JobKeyPrefix, jobID)
}

func ChatPeersKey(userID uint) string {
	return fmt.Sprintf(ChatPeersPrefix, userID)
}

func ResetTokenKey(token string) string {
	return fmt.Sprintf(ResetTokenPrefix, token)
}

func TokenDenyKey(jti string) string {
	return fmt.Sprintf(TokenDenyPrefix, jti)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateJob(ctx context.Context, jobID uint) {
	Invalidate(ctx, JobKey(jobID))
}

func InvalidateChatPeers(ctx context.Context, userID uint) {
	Invalidate(ctx, ChatPeersKey(userID))
}
