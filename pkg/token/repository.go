package token

import (
	"fmt"
	"time"

	"github.com/go-redis/redis"
)

//goland:noinspection GoExportedFuncWithUnexportedType
func NewRepository(client *redis.Client) *repository {
	return &repository{client}
}

type repository struct {
	client *redis.Client
}

func (r repository) SetRefreshToken(userId uint, tokenId string, expiresIn time.Duration) error {
	return r.client.Set(refreshTokenKey(userId, tokenId), "1", expiresIn).Err()
}

func (r repository) DeleteRefreshToken(userId uint, tokenId string) error {
	deleted, err := r.client.Del(refreshTokenKey(userId, tokenId)).Result()
	if err != nil {
		return err
	}
	if deleted < 1 {
		return fmt.Errorf("refresh token not found for user %d", userId)
	}
	return nil
}

func (r repository) DeleteRefreshTokens(userId uint) error {
	keys, err := r.client.Keys(refreshTokenKey(userId, "*")).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(keys...).Err()
}

func refreshTokenKey(userId uint, tokenId string) string {
	return fmt.Sprintf("refresh_token:%d:%s", userId, tokenId)
}
