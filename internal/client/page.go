package client

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// ============================================================
// Page State
// ============================================================

// Page хранит состояние загрузки одного блока данных страницы.
type Page[T any] struct {
	mu      sync.RWMutex
	data    T
	loading bool
	err     string
}

// Load выполняет fetch. Ошибка логируется и превращается в сообщение для пользователя,
// флаг загрузки снимается всегда. Предыдущие данные при ошибке сохраняются.
func (p *Page[T]) Load(ctx context.Context, log *zap.Logger, what string, fetch func(context.Context) (T, error)) error {
	p.mu.Lock()
	p.loading = true
	p.err = ""
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.loading = false
		p.mu.Unlock()
	}()

	data, err := fetch(ctx)
	if err != nil {
		log.Error("load failed", zap.String("what", what), zap.Error(err))
		p.mu.Lock()
		p.err = UserMessage(what, err)
		p.mu.Unlock()
		return err
	}

	p.mu.Lock()
	p.data = data
	p.mu.Unlock()
	return nil
}

func (p *Page[T]) Data() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.data
}

func (p *Page[T]) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

// Err возвращает сообщение для пользователя; пустая строка, если последняя загрузка успешна.
func (p *Page[T]) Err() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// UserMessage переводит ошибку клиента в текст для показа пользователю.
func UserMessage(what string, err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Не удалось загрузить " + what + ": превышено время ожидания"
	case errors.As(err, &apiErr):
		switch {
		case apiErr.Status == http.StatusNotFound:
			return "Не найдено: " + what
		case apiErr.Status == http.StatusUnauthorized:
			return "Требуется вход в систему"
		case apiErr.Status == http.StatusForbidden:
			return "Недостаточно прав"
		case apiErr.Status < http.StatusInternalServerError && apiErr.Message != "":
			return "Ошибка: " + apiErr.Message
		}
	}
	return "Не удалось загрузить " + what + ", попробуйте позже"
}
