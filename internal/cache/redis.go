package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const linkCodePrefix = "telegram:link:"

// Client обёртка над Redis для короткоживущих данных
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient подключается к Redis и проверяет соединение
func NewClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	logger.Info("Connected to Redis", zap.String("addr", addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// SaveLinkCode сохраняет одноразовый код привязки Telegram
func (c *Client) SaveLinkCode(ctx context.Context, code string, userID int64, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, linkCodePrefix+code, userID, ttl).Err(); err != nil {
		return fmt.Errorf("save link code: %w", err)
	}
	return nil
}

// ConsumeLinkCode возвращает пользователя по коду и удаляет код. 0 если код не найден или истёк.
func (c *Client) ConsumeLinkCode(ctx context.Context, code string) (int64, error) {
	value, err := c.rdb.GetDel(ctx, linkCodePrefix+code).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("consume link code: %w", err)
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse link code owner: %w", err)
	}

	return userID, nil
}

// Close закрывает соединение
func (c *Client) Close() error {
	return c.rdb.Close()
}
