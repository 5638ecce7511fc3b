package service

import (
	"context"

	"github.com/Freeeeeet/interview_scheduler/internal/interview"
	"github.com/Freeeeeet/interview_scheduler/internal/repository"
)

// Store репозитории поверх пула плюс запуск функции в транзакции
type Store interface {
	repository.Queries
	Atomic(ctx context.Context, fn func(q repository.Queries) error) error
}

// EffectDispatcher выполняет побочные эффекты после коммита. Ошибки доставки
// не возвращаются: операция уже состоялась. Ответ клиенту доставку не ждёт.
type EffectDispatcher interface {
	Dispatch(ctx context.Context, effects []interview.Effect)
}
